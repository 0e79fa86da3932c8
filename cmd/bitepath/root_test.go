package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitepath/internal/planner"
)

type cli struct {
	t    *testing.T
	base []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("BITEPATH_UNIT_SYSTEM", "")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	return &cli{t: t, base: []string{
		"--db", filepath.Join(dir, "bitepath.db"),
		"--state-dir", filepath.Join(dir, "state"),
		"--user", "tester",
	}}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	buf := &bytes.Buffer{}
	root := newRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append(append([]string{}, c.base...), args...))
	err := root.Execute()
	return buf.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "bitepath %s\n%s", strings.Join(args, " "), out)
	return out
}

func TestRootHelp(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("--help")
	assert.Contains(t, out, "grocery")
	assert.Contains(t, out, "add-item")
}

func TestGroceryFlow(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("add-meal", "--name", "Pancakes", "--ingredients",
		`[{"name":"Flour","quantity":1,"unit":"cup"},{"name":"Sugar","quantity":200,"unit":"g"},{"name":"Salt","description":"to taste"}]`)
	assert.Equal(t, "Added meal 1: Pancakes\n", out)
	c.mustRun("add-meal", "--name", "Muffins", "--ingredients", `[{"name":"flour","quantity":"0.5","unit":"cup"}]`)

	c.mustRun("plan", "--meal-id", "1", "--date", "2024-05-06", "--type", "breakfast")
	out = c.mustRun("plan", "--meal-id", "2", "--date", "2024-05-08")
	assert.Contains(t, out, "2024-05-08 dinner")

	out = c.mustRun("grocery", "--week", "2024-05-09")
	assert.Contains(t, out, "Grocery list 2024-05-06 to 2024-05-12 (imperial)")
	assert.Contains(t, out, "Pantry")
	assert.Contains(t, out, "[ ] Flour: 1 cup + 0.5 cup")
	assert.Contains(t, out, "[ ] Sugar: 200 g")
	assert.Contains(t, out, "[ ] Salt: to taste")

	out = c.mustRun("toggle", "1", "--week", "2024-05-06")
	assert.Equal(t, "Checked off Flour\n", out)

	out = c.mustRun("today", "--date", "2024-05-08")
	assert.Contains(t, out, "[x] Flour: 0.5 cup")

	out = c.mustRun("today", "--date", "2024-05-06", "--meals", "--details")
	assert.Contains(t, out, "Pancakes")
	assert.Contains(t, out, "1 cup (from: Pancakes)")

	c.mustRun("clear", "--today", "--date", "2024-05-08")
	out = c.mustRun("grocery", "--week", "2024-05-06")
	assert.NotContains(t, out, "[x]")
}

func TestManualItemsAndUnits(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("units")
	assert.Equal(t, "imperial\n", out)
	c.mustRun("units", "metric")
	assert.Equal(t, "metric\n", c.mustRun("units"))
	_, err := c.run("units", "cubits")
	assert.Error(t, err)

	out = c.mustRun("add-item", "Baking", "Soda", "--qty", "1", "--unit", "box")
	require.True(t, strings.HasPrefix(out, "Added Baking Soda 1 box (manual-"), out)
	id := strings.TrimSuffix(strings.TrimPrefix(out, "Added Baking Soda 1 box ("), ")\n")

	out = c.mustRun("grocery", "--week", "2024-05-06", "--flat", "--keys")
	assert.Contains(t, out, "(metric)")
	assert.Contains(t, out, "   1. [ ] Baking Soda: 1 box")
	assert.Contains(t, out, "key: manual:"+id)

	out = c.mustRun("toggle", "manual:"+id, "--week", "2024-05-06")
	assert.Equal(t, "Checked off Baking Soda\n", out)

	c.mustRun("remove-item", id)
	_, err = c.run("remove-item", id)
	assert.Error(t, err)

	out = c.mustRun("grocery", "--week", "2024-05-06")
	assert.Contains(t, out, "Nothing planned yet")
}

func TestCommandErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("plan", "--meal-id", "99", "--date", "2024-05-06")
	assert.ErrorIs(t, err, planner.ErrMealNotFound)

	_, err = c.run("grocery", "--week", "May 6")
	assert.ErrorContains(t, err, "invalid --week")

	_, err = c.run("add-meal")
	assert.ErrorContains(t, err, "--name is required")

	_, err = c.run("toggle", "3", "--week", "2024-05-06")
	assert.ErrorContains(t, err, "no item 3")

	_, err = c.run("--units", "cubits", "grocery")
	assert.Error(t, err)
}

func TestReadIngredients(t *testing.T) {
	blob, err := readIngredients(strings.NewReader(`[{"name":"Rice"}]`), "", "-")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Rice"}]`, *blob)

	blob, err = readIngredients(nil, "", "")
	require.NoError(t, err)
	assert.Nil(t, blob)

	_, err = readIngredients(nil, "[]", "x.json")
	assert.Error(t, err)
}
