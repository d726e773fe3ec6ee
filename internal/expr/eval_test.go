package expr

import (
	"testing"
)

func TestEvaluate_Arithmetic(t *testing.T) {
	ev := New()

	result := ev.Evaluate("2 + 3 * 4", nil)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Value != 14 {
		t.Errorf("expected 14, got %v", result.Value)
	}
}

func TestEvaluate_EnvVariables(t *testing.T) {
	ev := New()

	env := map[string]any{
		"inputs": map[string]any{
			"temp": map[string]any{"value": 20.0},
		},
		"tick": 5,
	}

	result := ev.Evaluate("inputs.temp.value * 1.8 + 32", env)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Value != 68.0 {
		t.Errorf("expected 68.0, got %v", result.Value)
	}

	result = ev.Evaluate("tick + 1", env)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Value != 6 {
		t.Errorf("expected 6, got %v", result.Value)
	}
}

func TestEvaluate_Comparison(t *testing.T) {
	ev := New()

	env := map[string]any{
		"inputs": map[string]any{
			"a": map[string]any{"value": 10.0},
			"b": map[string]any{"value": 7.0},
		},
	}

	result := ev.Evaluate("inputs.a.value > inputs.b.value", env)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Value != true {
		t.Errorf("expected true, got %v", result.Value)
	}

	result = ev.Evaluate("inputs.a.value == 10.0 && inputs.b.value < 5.0", env)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Value != false {
		t.Errorf("expected false, got %v", result.Value)
	}
}

func TestEvaluate_Conditional(t *testing.T) {
	ev := New()

	env := map[string]any{
		"inputs": map[string]any{
			"temp": map[string]any{"value": 27.0},
		},
	}

	result := ev.Evaluate(`inputs.temp.value > 25 ? "hot" : "ok"`, env)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Value != "hot" {
		t.Errorf("expected 'hot', got %v", result.Value)
	}
}

func TestEvaluate_SyntaxError(t *testing.T) {
	ev := New()

	result := ev.Evaluate("2 +* 3", nil)
	if result.Error == "" {
		t.Fatal("expected parse error")
	}
	if result.Value != nil {
		t.Errorf("value should be nil on error, got %v", result.Value)
	}
}

func TestEvaluate_MissingVariable(t *testing.T) {
	ev := New()

	// Отсутствующая переменная даёт nil, операция над nil — ошибку
	result := ev.Evaluate("inputs.ghost.value + 1", map[string]any{
		"inputs": map[string]any{},
	})
	if result.Error == "" {
		t.Fatal("expected evaluation error for missing variable")
	}
	if result.Value != nil {
		t.Errorf("value should be nil on error, got %v", result.Value)
	}
}

func TestEvaluate_CacheReuse(t *testing.T) {
	ev := New()

	// Повторное вычисление идёт через кэш и даёт тот же результат
	for i := 0; i < 3; i++ {
		result := ev.Evaluate("1 + 1", nil)
		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if result.Value != 2 {
			t.Errorf("expected 2, got %v", result.Value)
		}
	}

	ev.mu.RLock()
	cached := len(ev.cache)
	ev.mu.RUnlock()
	if cached != 1 {
		t.Errorf("expected 1 cached program, got %d", cached)
	}
}
