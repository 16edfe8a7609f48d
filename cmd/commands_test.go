package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/briefing-cli/internal/apperr"
	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/store"
)

func TestRunFallback_Single(t *testing.T) {
	env := newTestEnv(t)
	path := writeFile(t, "briefing.json", `{"padrao": "ALTO"}`)

	var out bytes.Buffer
	require.NoError(t, runFallback(context.Background(), env, path, &out))

	var got model.FallbackResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Success)
	assert.InDelta(t, 150.0, got.DadosCorrigidos.AreaConstruida, 1e-9)
	assert.True(t, got.Estimado(model.CampoAreaConstruida))
}

func TestRunFallback_ListYAML(t *testing.T) {
	env := newTestEnv(t)
	path := writeFile(t, "briefings.yaml", `
- areaConstruida: 80
  tipologia: comercial
- areaConstruida: 400
`)

	var out bytes.Buffer
	require.NoError(t, runFallback(context.Background(), env, path, &out))

	var got []model.FallbackResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, model.TipologiaComercial, got[0].DadosCorrigidos.Tipologia)
	assert.InDelta(t, 400.0, got[1].DadosCorrigidos.AreaConstruida, 1e-9)
}

func TestReadBriefings_Errors(t *testing.T) {
	_, _, err := readBriefings(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, _, err = readBriefings(writeFile(t, "bad.json", `not json`))
	assert.Error(t, err)
}

func TestRunConfigValidate(t *testing.T) {
	var out bytes.Buffer
	ok := writeFile(t, "ok.yaml", "tabelaPrecos:\n  arquitetura: {senior: 100, pleno: 150, junior: 80, estagiario: 40}\n")
	require.NoError(t, runConfigValidate(ok, &out))
	assert.Contains(t, out.String(), "warning: tabelaPrecos.arquitetura")
	assert.Contains(t, out.String(), ": ok")

	bad := writeFile(t, "bad.yaml", "configuracoesPadrao:\n  impostos: 1.5\n")
	err := runConfigValidate(bad, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfiguration, apperr.CodeOf(err))
}

func TestRunConfigSetAndShow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := writeFile(t, "esc.yaml", "configuracoesPadrao:\n  margem_lucro: 0.3\n  impostos: 0.1\n  custos_indiretos: 0.1\n  contingencia: 0.1\n")

	var out bytes.Buffer
	require.NoError(t, runConfigSet(ctx, env, "esc-1", path, &out))
	assert.Contains(t, out.String(), "configuration of esc-1 updated")

	out.Reset()
	require.NoError(t, runConfigShow(ctx, env, "esc-1", &out))
	assert.Contains(t, out.String(), "margem_lucro: 0.3")
	assert.Contains(t, out.String(), "tabelaPrecos:")

	stored, err := env.Store.GetOfficeConfig(ctx, "esc-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, stored.ConfiguracoesPadrao.MargemLucro, 1e-9)
}

func TestRunConfigShow_RequiresTenant(t *testing.T) {
	env := newTestEnv(t)
	err := runConfigShow(context.Background(), env, "", &bytes.Buffer{})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

// saveSample computes and stores the reference budget.
func saveSample(t *testing.T, env *appEnv) *model.BudgetRecord {
	t.Helper()
	var out bytes.Buffer
	path := writeFile(t, "req.json", requestJSON)
	require.NoError(t, runCalculate(context.Background(), env, calculateOptions{File: path, Save: true}, &out))
	var rec model.BudgetRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	return &rec
}

func TestRunExport_LocalFile(t *testing.T) {
	env := newTestEnv(t)
	rec := saveSample(t, env)
	dest := filepath.Join(t.TempDir(), "out.xlsx")

	var out bytes.Buffer
	require.NoError(t, runExport(context.Background(), env, nil, exportOptions{ID: rec.ID, Output: dest}, &out))
	assert.Contains(t, out.String(), "wrote "+dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	wb, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	assert.NotNil(t, wb.Sheet["Resumo"])
}

func TestRunExport_NotFound(t *testing.T) {
	env := newTestEnv(t)
	err := runExport(context.Background(), env, nil, exportOptions{ID: "missing"}, &bytes.Buffer{})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestRunBudgetsList(t *testing.T) {
	env := newTestEnv(t)
	rec := saveSample(t, env)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, runBudgetsList(ctx, env, store.BudgetFilter{}, false, &out))
	assert.Contains(t, out.String(), "CODIGO")
	assert.Contains(t, out.String(), rec.Budget.Codigo)
	assert.Contains(t, out.String(), "31110.00")

	out.Reset()
	require.NoError(t, runBudgetsList(ctx, env, store.BudgetFilter{Status: model.StatusAprovado}, true, &out))
	assert.JSONEq(t, `[]`, out.String())
}

func TestBudgetStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	rec := saveSample(t, env)
	ctx := context.Background()

	got, err := env.Store.UpdateBudgetStatus(ctx, rec.ID, model.StatusEnviado)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEnviado, got.Status)

	_, err = env.Store.UpdateBudgetStatus(ctx, rec.ID, model.StatusRascunho)
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
}
