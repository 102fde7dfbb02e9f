// Package main is the entry point for the autofilter service.
package main

import (
	"os"

	"github.com/kailas-cloud/autofilter/cmd/autofilter/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
