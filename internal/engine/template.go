package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shaiso/Simula/internal/domain"
)

// placeholderRe — плейсхолдер вида {{path.to.var}}.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Substitute подставляет переменные в конфигурацию узла.
//
// Возвращает неглубокую копию config, в которой каждое строковое
// значение верхнего уровня прошло подстановку: все вхождения
// {{path}} заменяются значением, найденным по dot-пути в variables.
//
// Если путь не разрешается, плейсхолдер остаётся как есть — это
// позволяет безопасно прогонять частично параметризованные шаблоны
// через несколько проходов подстановки. Нестроковые и вложенные
// значения не изменяются: подстановка работает только на одном
// уровне вложенности (осознанное ограничение, не баг).
func Substitute(config map[string]any, variables map[string]any) map[string]any {
	if config == nil {
		return nil
	}

	result := make(map[string]any, len(config))
	for key, val := range config {
		if s, ok := val.(string); ok {
			result[key] = SubstituteString(s, variables)
		} else {
			result[key] = val
		}
	}
	return result
}

// SubstituteString подставляет переменные в одну строку.
func SubstituteString(s string, variables map[string]any) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		path := placeholderRe.FindStringSubmatch(match)[1]
		val, ok := resolvePath(variables, path)
		if !ok {
			return match
		}
		return fmt.Sprintf("%v", val)
	})
}

// SubstituteScenario возвращает копию сценария с подставленными
// конфигурациями всех узлов. Структура графа не меняется.
func SubstituteScenario(sc *domain.Scenario, variables map[string]any) *domain.Scenario {
	resolved := &domain.Scenario{
		Version: sc.Version,
		Nodes:   make([]domain.Node, len(sc.Nodes)),
		Edges:   sc.Edges,
	}
	for i, node := range sc.Nodes {
		node.Config = Substitute(node.Config, variables)
		resolved.Nodes[i] = node
	}
	return resolved
}

// resolvePath разрешает dot-путь в дереве вложенных map.
// Возвращает false, если какой-то сегмент пути отсутствует.
func resolvePath(variables map[string]any, path string) (any, bool) {
	if variables == nil {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current any = variables

	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
