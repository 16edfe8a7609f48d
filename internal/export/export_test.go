package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/resilience"
)

func sampleRecord() *model.BudgetRecord {
	return &model.BudgetRecord{
		ID:           "a1b2",
		EscritorioID: "esc-1",
		Status:       model.StatusRascunho,
		Budget: model.BudgetResult{
			ID:             "a1b2",
			Codigo:         "ORC-A1B2C3D4",
			Nome:           "Residencia",
			AreaConstruida: 150,
			Tipologia:      model.TipologiaResidencial,
			Complexidade:   model.ComplexidadeMedia,
			ValorTotal:     31110,
			ValorPorM2:     207.4,
			Disciplinas: []model.DisciplineBudget{{
				Codigo:         model.DisciplinaArquitetura,
				Nome:           "Arquitetura",
				HorasEstimadas: 150,
				Equipe:         model.Equipe{Senior: 45, Pleno: 60, Junior: 30, Estagiario: 15},
				ValorHora:      122,
				ValorTotal:     18300,
			}},
			ComposicaoFinanceira: model.ComposicaoFinanceira{
				CustoTecnico: 18300, CustosIndiretos: 4575, Impostos: 2745, Contingencia: 1830, Lucro: 3660,
			},
			Cronograma: model.Cronograma{PrazoTotal: 8, Etapas: []model.EtapaCronograma{
				{Nome: "Estudo Preliminar", Inicio: 0, Fim: 1, Duracao: 1, Disciplinas: []model.Disciplina{model.DisciplinaArquitetura}},
			}},
			Proposta: model.Proposta{ValidadeProposta: 30},
		},
		CreatedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func readBack(t *testing.T, data []byte) *xlsx.File {
	t.Helper()
	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	return f
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRecord()))

	f := readBack(t, buf.Bytes())
	require.Len(t, f.Sheets, 4)
	assert.Equal(t, SheetResumo, f.Sheets[0].Name)
	assert.NotContains(t, f.Sheet, SheetFallbacks)

	resumo := f.Sheet[SheetResumo]
	assert.Equal(t, "Codigo", resumo.Rows[1].Cells[0].String())
	assert.Equal(t, "ORC-A1B2C3D4", resumo.Rows[1].Cells[1].String())

	disc := f.Sheet[SheetDisciplinas]
	require.Len(t, disc.Rows, 2)
	assert.Equal(t, "ARQUITETURA", disc.Rows[1].Cells[0].String())
	horas, err := disc.Rows[1].Cells[3].Int()
	require.NoError(t, err)
	assert.Equal(t, 150, horas)

	comp := f.Sheet[SheetComposicao]
	total, err := comp.Rows[6].Cells[1].Float()
	require.NoError(t, err)
	assert.InDelta(t, 31110.0, total, 1e-6)
}

func TestWorkbook_TotalsByCategory(t *testing.T) {
	t.Parallel()
	rec := sampleRecord()
	rec.Budget.Disciplinas = append(rec.Budget.Disciplinas,
		model.DisciplineBudget{Codigo: model.DisciplinaUrbanismo, HorasEstimadas: 20, ValorTotal: 2000},
		model.DisciplineBudget{Codigo: model.DisciplinaEletrica, HorasEstimadas: 30, ValorTotal: 2700},
	)

	f, err := Workbook(rec)
	require.NoError(t, err)

	valor := f.Sheet[SheetResumo].Rows[9]
	assert.Equal(t, "Valor total", valor.Cells[0].String())
	require.Len(t, valor.Cells, 3)
	assert.Equal(t, "R$ 31.110,00", valor.Cells[2].String())

	comp := f.Sheet[SheetComposicao]
	cats := model.Categorias()
	require.Len(t, comp.Rows, 9+len(cats))
	assert.Equal(t, "Categoria", comp.Rows[8].Cells[0].String())

	want := map[model.Categoria][2]float64{
		model.CategoriaArquitetura: {170, 20300},
		model.CategoriaInstalacoes: {30, 2700},
	}
	for i, cat := range cats {
		row := comp.Rows[9+i]
		assert.Equal(t, string(cat), row.Cells[0].String())
		horas, err := row.Cells[1].Int()
		require.NoError(t, err)
		v, err := row.Cells[2].Float()
		require.NoError(t, err)
		assert.Equal(t, int(want[cat][0]), horas, "horas %s", cat)
		assert.InDelta(t, want[cat][1], v, 1e-6, "valor %s", cat)
	}
}

func TestWorkbook_FallbackSheet(t *testing.T) {
	t.Parallel()
	rec := sampleRecord()
	rec.Fallback = &model.FallbackResult{
		Success: true,
		FallbacksAplicados: []model.FallbackAplicado{
			{Campo: "areaConstruida", ValorFallback: 150.0, Motivo: "valor padrao", Confianca: model.ConfiancaBaixa},
		},
	}

	f, err := Workbook(rec)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetFallbacks]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "areaConstruida", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "150", sheet.Rows[1].Cells[1].String())
}

func TestWorkbook_Nil(t *testing.T) {
	t.Parallel()
	_, err := Workbook(nil)
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "escritorios/esc-1/orcamentos/ORC-A1B2C3D4.xlsx", ObjectKey(sampleRecord()))

	rec := sampleRecord()
	rec.Budget.Codigo = ""
	assert.Equal(t, "a1b2.xlsx", FileName(rec))
}

type fakeObjects struct {
	mu       sync.Mutex
	buckets  map[string]bool
	objects  map[string][]byte
	failures []error
	puts     int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{buckets: map[string]bool{}, objects: map[string][]byte{}}
}

func (f *fakeObjects) BucketExists(_ context.Context, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[bucket], nil
}

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return minio.UploadInfo{}, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+object] = data
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestUploader_EnsureBucketAndUpload(t *testing.T) {
	t.Parallel()
	objs := newFakeObjects()
	u := NewUploader(objs, "proposals", "us-east-1", fastRetry())
	ctx := context.Background()

	require.NoError(t, u.EnsureBucket(ctx))
	assert.True(t, objs.buckets["proposals"])
	require.NoError(t, u.EnsureBucket(ctx))

	key, err := u.Upload(ctx, sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, ObjectKey(sampleRecord()), key)

	f := readBack(t, objs.objects["proposals/"+key])
	assert.Contains(t, f.Sheet, SheetCronograma)
}

func TestUploader_RetriesTransientStatus(t *testing.T) {
	t.Parallel()
	objs := newFakeObjects()
	objs.failures = []error{minio.ErrorResponse{StatusCode: http.StatusServiceUnavailable, Code: "SlowDown"}}
	u := NewUploader(objs, "proposals", "", fastRetry())

	_, err := u.Upload(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, 2, objs.puts)
}

func TestUploader_PermanentFailure(t *testing.T) {
	t.Parallel()
	objs := newFakeObjects()
	objs.failures = []error{minio.ErrorResponse{StatusCode: http.StatusForbidden, Code: "AccessDenied"}}
	u := NewUploader(objs, "proposals", "", fastRetry())

	_, err := u.Upload(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Equal(t, 1, objs.puts)
}

func TestRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, retryable(minio.ErrorResponse{StatusCode: http.StatusInternalServerError}))
	assert.False(t, retryable(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
	assert.True(t, retryable(resilience.NewTransientError(errors.New("x"), 0)))
	assert.False(t, retryable(errors.New("bad key")))
}

func TestNewMinioClient_RequiresEndpoint(t *testing.T) {
	t.Parallel()
	_, err := NewMinioClient(StorageConfig{})
	assert.Error(t, err)

	c, err := NewMinioClient(StorageConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
