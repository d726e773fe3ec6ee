package engine

import (
	"testing"

	"github.com/shaiso/Simula/internal/domain"
)

func TestSubstituteString_Simple(t *testing.T) {
	variables := map[string]any{
		"name": "boiler",
	}

	result := SubstituteString("sensor {{name}}", variables)
	if result != "sensor boiler" {
		t.Errorf("expected 'sensor boiler', got %q", result)
	}
}

func TestSubstituteString_NestedPath(t *testing.T) {
	variables := map[string]any{
		"room": map[string]any{
			"temp": map[string]any{
				"max": 26.5,
			},
		},
	}

	result := SubstituteString("{{room.temp.max}}", variables)
	if result != "26.5" {
		t.Errorf("expected '26.5', got %q", result)
	}
}

func TestSubstituteString_MultiplePlaceholders(t *testing.T) {
	variables := map[string]any{
		"min": 18,
		"max": 26,
	}

	result := SubstituteString("range {{min}}..{{max}}", variables)
	if result != "range 18..26" {
		t.Errorf("expected 'range 18..26', got %q", result)
	}
}

func TestSubstituteString_UnresolvedKept(t *testing.T) {
	// Неразрешённый плейсхолдер остаётся нетронутым
	variables := map[string]any{
		"known": "yes",
	}

	result := SubstituteString("{{known}} and {{unknown.path}}", variables)
	if result != "yes and {{unknown.path}}" {
		t.Errorf("unresolved placeholder should be kept, got %q", result)
	}

	// Как и при полном отсутствии переменных
	result = SubstituteString("{{x}}", nil)
	if result != "{{x}}" {
		t.Errorf("expected '{{x}}', got %q", result)
	}
}

func TestSubstituteString_PathThroughNonMap(t *testing.T) {
	// Путь упирается в скалярное значение — сегмент не разрешается
	variables := map[string]any{
		"a": 42,
	}

	result := SubstituteString("{{a.b}}", variables)
	if result != "{{a.b}}" {
		t.Errorf("expected '{{a.b}}', got %q", result)
	}
}

func TestSubstituteString_Whitespace(t *testing.T) {
	variables := map[string]any{
		"v": "ok",
	}

	result := SubstituteString("{{ v }}", variables)
	if result != "ok" {
		t.Errorf("expected 'ok', got %q", result)
	}
}

func TestSubstitute_NonStringPassthrough(t *testing.T) {
	// Подстановка работает только со строковыми значениями верхнего уровня
	config := map[string]any{
		"expression": "{{threshold}} * 2",
		"interval":   5,
		"enabled":    true,
		"nested": map[string]any{
			"inner": "{{threshold}}",
		},
	}
	variables := map[string]any{
		"threshold": 21.5,
	}

	result := Substitute(config, variables)

	if result["expression"] != "21.5 * 2" {
		t.Errorf("expected '21.5 * 2', got %v", result["expression"])
	}
	if result["interval"] != 5 {
		t.Errorf("non-string value should pass through, got %v", result["interval"])
	}
	if result["enabled"] != true {
		t.Errorf("bool value should pass through, got %v", result["enabled"])
	}

	// Вложенные map не обрабатываются
	nested := result["nested"].(map[string]any)
	if nested["inner"] != "{{threshold}}" {
		t.Errorf("nested values should not be substituted, got %v", nested["inner"])
	}
}

func TestSubstitute_DoesNotMutateOriginal(t *testing.T) {
	config := map[string]any{
		"expression": "{{v}}",
	}

	Substitute(config, map[string]any{"v": 1})

	if config["expression"] != "{{v}}" {
		t.Error("original config must not be mutated")
	}
}

func TestSubstitute_NilConfig(t *testing.T) {
	if Substitute(nil, map[string]any{"v": 1}) != nil {
		t.Error("nil config should return nil")
	}
}

func TestSubstituteScenario(t *testing.T) {
	sc := &domain.Scenario{
		Version: "3.0",
		Nodes: []domain.Node{
			{
				ID:   "const",
				Type: "constant",
				Config: map[string]any{
					"value": "{{setpoint}}",
				},
			},
			{
				ID:   "out",
				Type: "output",
			},
		},
		Edges: []domain.Edge{
			{Source: "const", Target: "out"},
		},
	}

	resolved := SubstituteScenario(sc, map[string]any{"setpoint": 22})

	if resolved.Nodes[0].Config["value"] != "22" {
		t.Errorf("expected '22', got %v", resolved.Nodes[0].Config["value"])
	}

	// Структура графа не меняется
	if len(resolved.Edges) != 1 || resolved.Version != "3.0" {
		t.Error("scenario structure should be preserved")
	}

	// Исходный сценарий не мутирован
	if sc.Nodes[0].Config["value"] != "{{setpoint}}" {
		t.Error("original scenario must not be mutated")
	}
}
