package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the subset of the scenario context these steps use.
type TestContext interface {
	AuthenticateAs(role string, keepClient bool) error
	ClearAuth()
	POST(path string, body any) error
	GET(path string) error
	DELETE(path string) error
	LastStatus() int
	LastBody() []byte
	LastHeader(key string) string
	ResponseField(field string) (any, error)
	Capture(field, name string) error
}

// RegisterSteps registers authentication, generic request and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &commonSteps{tc: tc}

	ctx.Step(`^I am authenticated as a (client|commercial|admin)$`, s.authenticatedAs)
	ctx.Step(`^I am authenticated as the same client$`, s.authenticatedAsSameClient)
	ctx.Step(`^I am not authenticated$`, s.notAuthenticated)

	ctx.Step(`^I GET "([^"]*)"$`, s.get)
	ctx.Step(`^I DELETE "([^"]*)"$`, s.delete)
	ctx.Step(`^I POST to "([^"]*)"$`, s.postEmpty)
	ctx.Step(`^I POST to "([^"]*)" with:$`, s.postJSON)

	ctx.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, s.fieldShouldEqual)
	ctx.Step(`^the response header "([^"]*)" should be present$`, s.headerShouldBePresent)
	ctx.Step(`^I remember the response field "([^"]*)" as "([^"]*)"$`, s.remember)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) authenticatedAs(_ context.Context, role string) error {
	return s.tc.AuthenticateAs(role, false)
}

func (s *commonSteps) authenticatedAsSameClient(context.Context) error {
	return s.tc.AuthenticateAs("client", true)
}

func (s *commonSteps) notAuthenticated(context.Context) error {
	s.tc.ClearAuth()
	return nil
}

func (s *commonSteps) get(_ context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) delete(_ context.Context, path string) error {
	return s.tc.DELETE(path)
}

func (s *commonSteps) postEmpty(_ context.Context, path string) error {
	return s.tc.POST(path, nil)
}

func (s *commonSteps) postJSON(_ context.Context, path string, doc *godog.DocString) error {
	var body any
	if err := json.Unmarshal([]byte(doc.Content), &body); err != nil {
		return fmt.Errorf("step body is not JSON: %w", err)
	}
	return s.tc.POST(path, body)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.LastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(_ context.Context, field, want string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) headerShouldBePresent(_ context.Context, key string) error {
	if s.tc.LastHeader(key) == "" {
		return fmt.Errorf("expected header %s", key)
	}
	return nil
}

func (s *commonSteps) remember(_ context.Context, field, name string) error {
	return s.tc.Capture(field, name)
}
