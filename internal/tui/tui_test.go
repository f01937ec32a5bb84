package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealercrm/internal/backup"
	"dealercrm/internal/csv"
	"dealercrm/internal/importer"
	"dealercrm/internal/storage"
)

func newTestServices(t *testing.T) (Services, *storage.Memory) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	kv := storage.NewMemory()
	return Services{
		Backup:    backup.NewService(kv, backup.WithLogger(logger)),
		Customers: importer.NewCustomerStore(kv),
		Logger:    logger,
		BackupDir: t.TempDir(),
	}, kv
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMenuSelectsScreens(t *testing.T) {
	svc, _ := newTestServices(t)
	m := NewModel(svc)

	next, _ := m.Update(key(tea.KeyDown))
	next, cmd := next.Update(key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Equal(t, ScreenChangeMsg{Screen: ExportScreen}, cmd())

	next, _ = next.Update(ScreenChangeMsg{Screen: ExportScreen})
	assert.Equal(t, ExportScreen, next.(Model).currentScreen)
	assert.Contains(t, next.View(), "Export Customers")

	next, _ = next.Update(key(tea.KeyEsc))
	assert.Equal(t, MenuScreen, next.(Model).currentScreen)
}

func TestQuitOnlyFromMenu(t *testing.T) {
	svc, _ := newTestServices(t)
	var m tea.Model = NewModel(svc)

	m, _ = m.Update(ScreenChangeMsg{Screen: ImportScreen})
	m, _ = m.Update(runes("q"))
	assert.False(t, m.(Model).quitting)
	assert.Equal(t, "q", m.(Model).importModel.inputs[importFileField].Value())

	m, _ = m.Update(key(tea.KeyEsc))
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestImportPreviewThenCommit(t *testing.T) {
	svc, _ := newTestServices(t)
	path := filepath.Join(t.TempDir(), "customers.csv")
	fields := make([]string, csv.ColumnCount)
	fields[0], fields[4], fields[7] = "見込み", "田中太郎", "東京都港区"
	text := csv.SerializeRow(csv.Headers, ',') + csv.SerializeRow(fields, ',')
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	im := NewImportModel(svc)
	im.Update(im.parse(path, "utf-8", "")())
	require.Equal(t, ImportPreviewState, im.state)
	require.Len(t, im.preview.Customers, 1)
	assert.Contains(t, im.View(), "Customers ready: 1")

	im.Update(im.commit(im.preview)())
	assert.Equal(t, ImportResultState, im.state)
	assert.NoError(t, im.err)
	assert.Equal(t, 1, im.saved)

	stored, err := svc.Customers.Customers(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "田中太郎", stored[0].Name)
	assert.Equal(t, "関東", stored[0].Region)
}

func TestImportReportsUnreadableFile(t *testing.T) {
	svc, _ := newTestServices(t)
	im := NewImportModel(svc)

	im.Update(im.parse(filepath.Join(t.TempDir(), "missing.csv"), "auto", "")())
	assert.Equal(t, ImportResultState, im.state)
	assert.Error(t, im.err)
	assert.Contains(t, im.View(), "Import failed")
}

func TestEscStaysOnScreenDuringPreview(t *testing.T) {
	svc, _ := newTestServices(t)
	m := NewModel(svc)
	m.currentScreen = ImportScreen
	m.importModel.state = ImportPreviewState

	next, _ := m.Update(key(tea.KeyEsc))
	assert.Equal(t, ImportScreen, next.(Model).currentScreen)
	assert.Equal(t, ImportInputState, next.(Model).importModel.state)
}

func TestBackupThenRestore(t *testing.T) {
	svc, kv := newTestServices(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "customer-store", `{"state":{"customers":[{"id":"c1","name":"佐藤花子"}]},"version":0}`))

	bm := NewBackupModel(svc)
	bm.Update(bm.performBackup(svc.BackupDir, "")())
	require.Equal(t, BackupResultState, bm.state)
	require.NoError(t, bm.result.Error)
	assert.FileExists(t, bm.result.FilePath)
	assert.Contains(t, bm.View(), "all keys")

	require.NoError(t, svc.Backup.ClearAll(ctx))

	rm := NewRestoreModel(svc)
	rm.backupFileInput.SetValue(bm.result.FilePath)
	rm.Update(loadEnvelope(bm.result.FilePath)())
	require.Equal(t, ConfirmationState, rm.state)
	assert.Contains(t, rm.View(), "customer-store")

	rm.Update(rm.performRestore(rm.envelope)())
	require.Equal(t, RestoreResultState, rm.state)
	require.NoError(t, rm.err)
	assert.Equal(t, []string{"customer-store"}, rm.result.Restored)

	v, ok, err := kv.Get(ctx, "customer-store")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"state":{"customers":[{"id":"c1","name":"佐藤花子"}]},"version":0}`, v)
}

func TestBackupOfEmptyKeyIsReported(t *testing.T) {
	svc, _ := newTestServices(t)
	bm := NewBackupModel(svc)

	bm.Update(bm.performBackup(svc.BackupDir, "chat-storage")())
	assert.Equal(t, BackupResultState, bm.state)
	assert.ErrorContains(t, bm.result.Error, "holds no data")
}

func TestRestoreRejectsInvalidFile(t *testing.T) {
	svc, _ := newTestServices(t)
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":`), 0644))

	rm := NewRestoreModel(svc)
	rm.Update(loadEnvelope(path)())
	assert.Equal(t, RestoreResultState, rm.state)
	assert.Error(t, rm.err)
}

func TestStorageScreenShowsInventoryAndClears(t *testing.T) {
	svc, kv := newTestServices(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "auth-storage", `{"state":{"users":[{"id":"u1","name":"目黒"}]}}`))

	sm := NewStorageModel(svc)
	sm.Update(sm.Refresh()())
	require.True(t, sm.loaded)
	view := sm.View()
	assert.Contains(t, view, "auth-storage")
	assert.Greater(t, sm.usage.Used, 0)

	sm.Update(runes("x"))
	assert.Equal(t, StorageConfirmClearState, sm.state)
	_, cmd := sm.Update(runes("y"))
	require.NotNil(t, cmd)
	sm.Update(cmd())
	assert.Equal(t, "Cleared every CRM storage key", sm.message)

	_, ok, err := kv.Get(ctx, "auth-storage")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportWritesFile(t *testing.T) {
	svc, _ := newTestServices(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	em := NewExportModel(svc)
	em.Update(em.export(path, exportEncodings[1])())
	assert.True(t, em.done)
	require.NoError(t, em.err)
	assert.Equal(t, 0, em.count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
}
