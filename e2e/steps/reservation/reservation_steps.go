package reservation

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/cucumber/godog"
)

type TestContext interface {
	AuthenticateAs(role string, keepClient bool) error
	POST(path string, body any) error
	LastStatus() int
	LastBody() []byte
	Capture(field, name string) error
	Set(name, value string)
	Var(name string) string
}

// RegisterSteps registers the reservation lifecycle steps. The unit under
// test comes from E2E_UNIT_ID and must be seeded as available.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &reservationSteps{tc: tc}

	ctx.Step(`^an available unit$`, s.availableUnit)
	ctx.Step(`^I reserve the unit with a deposit of "([^"]*)"$`, s.reserve)
	ctx.Step(`^a commercial confirms the reservation$`, s.confirm)
	ctx.Step(`^a commercial creates the contract$`, s.createContract)
	ctx.Step(`^a commercial cancels the reservation because "([^"]*)"$`, s.cancel)

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		return ctx, s.release()
	})
}

type reservationSteps struct {
	tc TestContext
}

func (s *reservationSteps) availableUnit(context.Context) error {
	unitID := os.Getenv("E2E_UNIT_ID")
	if unitID == "" {
		return godog.ErrSkip
	}
	s.tc.Set("unit_id", unitID)
	return nil
}

func (s *reservationSteps) reserve(_ context.Context, deposit string) error {
	err := s.tc.POST("/reservations", map[string]any{
		"unit_id": s.tc.Var("unit_id"),
		"deposit": deposit,
	})
	if err != nil {
		return err
	}
	if s.tc.LastStatus() == http.StatusCreated {
		return s.tc.Capture("id", "reservation_id")
	}
	return nil
}

func (s *reservationSteps) asStaff(fn func() error) error {
	if err := s.tc.AuthenticateAs("commercial", false); err != nil {
		return err
	}
	return fn()
}

func (s *reservationSteps) confirm(context.Context) error {
	return s.asStaff(func() error {
		return s.expect(http.StatusOK, s.tc.POST("/reservations/{reservation_id}/confirm", nil))
	})
}

func (s *reservationSteps) createContract(context.Context) error {
	return s.asStaff(func() error {
		err := s.tc.POST("/reservations/{reservation_id}/contract", map[string]any{
			"content_base64": base64.StdEncoding.EncodeToString([]byte("e2e deed of sale")),
		})
		if err := s.expect(http.StatusCreated, err); err != nil {
			return err
		}
		return s.tc.Capture("id", "contract_id")
	})
}

func (s *reservationSteps) cancel(_ context.Context, reason string) error {
	return s.asStaff(func() error {
		return s.tc.POST("/reservations/{reservation_id}/cancel", map[string]any{"reason": reason})
	})
}

// release cancels the scenario's reservation so the unit is available to the
// next scenario. Already terminal reservations answer 409, which is fine.
func (s *reservationSteps) release() error {
	if s.tc.Var("reservation_id") == "" {
		return nil
	}
	if err := s.tc.AuthenticateAs("admin", false); err != nil {
		return err
	}
	return s.tc.POST("/reservations/{reservation_id}/cancel", map[string]any{"reason": "e2e cleanup"})
}

func (s *reservationSteps) expect(status int, err error) error {
	if err != nil {
		return err
	}
	if got := s.tc.LastStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.LastBody())
	}
	return nil
}
