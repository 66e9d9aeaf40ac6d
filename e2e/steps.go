package e2e

import (
	"context"

	"github.com/cucumber/godog"

	"immo/e2e/steps/common"
	"immo/e2e/steps/reservation"
	"immo/e2e/steps/signature"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.Reset()
		return ctx, nil
	})

	common.RegisterSteps(ctx, tc)
	reservation.RegisterSteps(ctx, tc)
	signature.RegisterSteps(ctx, tc)
}
