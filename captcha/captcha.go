// Package captcha solves the Arkose (FunCaptcha) challenge that the login
// flow sometimes puts in front of the password step.
package captcha

import "context"

// Solver turns a challenge into a token the onboarding flow accepts.
type Solver interface {
	// Solve returns a solution token for the FunCaptcha identified by
	// publicKey as shown on pageURL.
	Solve(ctx context.Context, publicKey, pageURL string) (string, error)

	// Balance reports the remaining account credit in USD.
	Balance(ctx context.Context) (float64, error)
}
