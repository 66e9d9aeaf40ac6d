package signature

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	LastStatus() int
	LastBody() []byte
	ResponseField(field string) (any, error)
}

// RegisterSteps registers signing protocol steps. Codes are delivered out of
// band, so scenarios exercise the wrong-code path and the lockout.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &signatureSteps{tc: tc}

	ctx.Step(`^I request a signature code$`, s.requestCode)
	ctx.Step(`^I submit the wrong code "([^"]*)" (\d+) times?$`, s.submitWrongCode)
	ctx.Step(`^the last submission should be "([^"]*)"$`, s.lastOutcomeShouldBe)
}

type signatureSteps struct {
	tc TestContext
}

func (s *signatureSteps) requestCode(context.Context) error {
	return s.tc.POST("/contracts/{contract_id}/signature-code", nil)
}

func (s *signatureSteps) submitWrongCode(_ context.Context, code string, times int) error {
	for i := range times {
		if err := s.tc.POST("/contracts/{contract_id}/signature", map[string]any{"code": code}); err != nil {
			return err
		}
		if s.tc.LastStatus() == http.StatusOK {
			return fmt.Errorf("submission %d unexpectedly signed the contract", i+1)
		}
	}
	return nil
}

func (s *signatureSteps) lastOutcomeShouldBe(_ context.Context, want string) error {
	v, err := s.tc.ResponseField("outcome")
	if err != nil {
		return err
	}
	if v != want {
		return fmt.Errorf("expected outcome %q, got %v", want, v)
	}
	return nil
}
