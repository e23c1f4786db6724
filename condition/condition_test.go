package condition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	e := NewEvaluator()
	vars := map[string]any{
		"status": float64(404),
		"name":   "ann",
		"active": true,
	}
	for expression, expected := range map[string]bool{
		"true":                             true,
		"false":                            false,
		"1 == 1":                           true,
		"404 >= 400":                       true,
		`"abc" == "abc"`:                   true,
		`"abc" != "abc"`:                   false,
		"status == 404":                    true,
		"status < 300":                     false,
		`name == "ann" && active`:          true,
		`name == "bob" || !active`:         false,
		"!(status > 500)":                  true,
		"undefinedVar == nil":              true,
		"  ":                               false,
	} {
		t.Run(expression, func(t *testing.T) {
			got, err := e.Evaluate(expression, vars)
			require.NoError(t, err)
			require.Equal(t, expected, got)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	e := NewEvaluator()
	for _, expression := range []string{
		"1 +",
		`len("abc") > 1`,
		`"text"`,
	} {
		t.Run(expression, func(t *testing.T) {
			_, err := e.Evaluate(expression, nil)
			require.Error(t, err)
		})
	}
}

func TestCompileCaches(t *testing.T) {
	e := NewEvaluator()
	p1, err := e.Compile("a == 1")
	require.NoError(t, err)
	p2, err := e.Compile(" a == 1 ")
	require.NoError(t, err)
	require.Same(t, p1, p2)
}
