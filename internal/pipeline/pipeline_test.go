package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/telecheck/internal/config"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	tolerant  bool
	doFunc    func(ctx context.Context, a *Analysis) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, a *Analysis) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, a)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func (m *mockStep) ToleratesCancel() bool {
	return m.tolerant
}

func newTestAnalysis() *Analysis {
	return NewAnalysis("https://example.com", config.DefaultAnalysisConfig())
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	if p.StepCount() != 3 {
		t.Errorf("expected 3 steps, got %d", p.StepCount())
	}
	want := []string{"first", "second", "third"}
	if got := p.StepNames(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *Analysis) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(record("a"), record("b"), record("c"))
		a := newTestAnalysis()
		if err := p.Execute(context.Background(), a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(order, []string{"a", "b", "c"}) {
			t.Errorf("expected order [a b c], got %v", order)
		}
		if !slices.Equal(a.Performed, []string{"a", "b", "c"}) {
			t.Errorf("expected performed [a b c], got %v", a.Performed)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		last := &mockStep{name: "last"}
		p := New()
		p.AddSteps(
			&mockStep{name: "fail", doFunc: func(context.Context, *Analysis) error { return errBoom }},
			last,
		)
		if err := p.Execute(context.Background(), newTestAnalysis()); !errors.Is(err, errBoom) {
			t.Errorf("expected errBoom, got %v", err)
		}
		if last.callCount != 0 {
			t.Errorf("expected last step not to run, ran %d times", last.callCount)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		last := &mockStep{name: "last"}
		p := New(WithContinueOnError(true))
		p.AddSteps(
			&mockStep{name: "fail", doFunc: func(context.Context, *Analysis) error { return errBoom }},
			last,
		)
		a := newTestAnalysis()
		if err := p.Execute(context.Background(), a); !errors.Is(err, errBoom) {
			t.Errorf("expected errBoom, got %v", err)
		}
		if last.callCount != 1 {
			t.Errorf("expected last step to run once, ran %d times", last.callCount)
		}
		if !slices.Equal(a.Performed, []string{"last"}) {
			t.Errorf("expected performed [last], got %v", a.Performed)
		}
	})

	t.Run("cancellation skips intolerant steps only", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		tolerant := &mockStep{name: "pure", tolerant: true}
		network := &mockStep{name: "network"}
		p := New()
		p.AddSteps(tolerant, network)

		err := p.Execute(ctx, newTestAnalysis())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if tolerant.callCount != 1 {
			t.Errorf("expected tolerant step to run, ran %d times", tolerant.callCount)
		}
		if network.callCount != 0 {
			t.Errorf("expected network step to be skipped, ran %d times", network.callCount)
		}
	})
}
