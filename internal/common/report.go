package common

import (
	"log"

	"github.com/getsentry/sentry-go"
)

// Report logs an error and forwards it to sentry when configured. Sentry is
// a no-op before sentry.Init, so callers never need to guard.
func Report(err error) {
	if err == nil {
		return
	}

	log.Default().Println("error: ", err.Error())
	sentry.CaptureException(err)
}
