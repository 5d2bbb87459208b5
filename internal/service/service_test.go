package service

import (
	"context"
	"database/sql"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"excel-insights-api/internal/auth"
	"excel-insights-api/internal/db"
	"excel-insights-api/internal/excel"
	"excel-insights-api/internal/model"
	"excel-insights-api/internal/storage"
	"excel-insights-api/pkg/errors"

	"github.com/xuri/excelize/v2"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	alice = auth.Identity{UserID: "11111111-1111-4111-8111-111111111111", Role: model.RoleUser}
	bob   = auth.Identity{UserID: "22222222-2222-4222-8222-222222222222", Role: model.RoleUser}
	admin = auth.Identity{UserID: "33333333-3333-4333-8333-333333333333", Role: model.RoleAdmin}
)

type flakyStorage struct {
	storage.Storage
	deleteErr error
}

func (s *flakyStorage) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Storage.Delete(ctx, key)
}

type recordingEnqueuer struct {
	jobs []model.BlobCleanupJob
}

func (e *recordingEnqueuer) EnqueueBlobCleanup(ctx context.Context, job model.BlobCleanupJob) error {
	e.jobs = append(e.jobs, job)
	return nil
}

type fixture struct {
	db       *sql.DB
	store    *flakyStorage
	files    *FileService
	admin    *AdminService
	accounts *AccountService
	cleanup  *recordingEnqueuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	if err := db.EnsureSchema(context.Background(), conn, "sqlite3"); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	local, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	store := &flakyStorage{Storage: local}

	policy := auth.DefaultPolicy()
	settings := db.NewSettingsRepository(conn, "sqlite3")
	users := db.NewUserRepository(conn)
	cleanup := &recordingEnqueuer{}

	files := NewFileService(
		db.NewFileRepository(conn),
		settings,
		store,
		excel.NewNormalizer(),
		excel.NewValidator([]string{xlsxMIME, "application/vnd.ms-excel"}),
		policy,
	).WithCleanup(cleanup)

	return &fixture{
		db:       conn,
		store:    store,
		files:    files,
		admin:    NewAdminService(settings, users, policy),
		accounts: NewAccountService(users, auth.NewTokenManager("test-secret", "test", time.Hour)),
		cleanup:  cleanup,
	}
}

func peopleWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue("Sheet1", "A1", "Name")
	f.SetCellValue("Sheet1", "B1", "Age")
	f.SetCellValue("Sheet1", "A2", "Alice")
	f.SetCellValue("Sheet1", "B2", 30)
	f.SetCellValue("Sheet1", "A3", "Bob")
	f.SetCellValue("Sheet1", "B3", 25)
	if _, err := f.NewSheet("Sheet2"); err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, fx *fixture, id auth.Identity, name string) *model.FileRecord {
	t.Helper()

	data := peopleWorkbook(t)
	record, err := fx.files.Upload(context.Background(), id, UploadInput{
		Filename: name,
		MIMEType: xlsxMIME,
		Size:     int64(len(data)),
		Data:     data,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	return record
}

func countRows(t *testing.T, conn *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestUpload_RoundTrip(t *testing.T) {
	fx := newFixture(t)
	created := upload(t, fx, alice, "people.xlsx")

	sheet := created.Data["Sheet1"]
	wantTypes := map[string]model.ColumnType{"Name": model.ColumnString, "Age": model.ColumnNumber}
	if !reflect.DeepEqual(sheet.ColumnTypes, wantTypes) {
		t.Errorf("ColumnTypes = %v, want %v", sheet.ColumnTypes, wantTypes)
	}
	if len(sheet.Rows) != 2 {
		t.Errorf("len(Rows) = %d, want 2", len(sheet.Rows))
	}

	fetched, err := fx.files.Get(context.Background(), alice, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(fetched.Data, created.Data) {
		t.Errorf("Get().Data = %#v, want %#v", fetched.Data, created.Data)
	}
	if fetched.OriginalName != "people.xlsx" {
		t.Errorf("OriginalName = %q", fetched.OriginalName)
	}

	ok, err := fx.store.Exists(context.Background(), created.StoredName)
	if err != nil || !ok {
		t.Errorf("blob %q not stored: %v", created.StoredName, err)
	}
}

func TestUpload_SignatureBeatsCSVExtension(t *testing.T) {
	fx := newFixture(t)
	created := upload(t, fx, alice, "people.csv")

	if got := created.Data.SheetNames(); !reflect.DeepEqual(got, []string{"Sheet1", "Sheet2"}) {
		t.Fatalf("SheetNames() = %v", got)
	}
	sheet := created.Data["Sheet1"]
	if !reflect.DeepEqual(sheet.Headers, []string{"Name", "Age"}) {
		t.Errorf("Headers = %v, want workbook headers", sheet.Headers)
	}
	if len(sheet.Rows) != 2 {
		t.Errorf("len(Rows) = %d, want 2", len(sheet.Rows))
	}
}

func TestUpload_Rejections(t *testing.T) {
	fx := newFixture(t)
	valid := peopleWorkbook(t)

	tests := []struct {
		name  string
		id    auth.Identity
		input UploadInput
		check func(error) bool
	}{
		{
			name:  "anonymous",
			id:    auth.Identity{},
			input: UploadInput{Filename: "a.xlsx", MIMEType: xlsxMIME, Size: 1, Data: valid},
			check: func(err error) bool { return errors.Is(err, errors.ErrUnauthorized) },
		},
		{
			name:  "missing file",
			id:    alice,
			input: UploadInput{MIMEType: xlsxMIME},
			check: errors.IsValidation,
		},
		{
			name:  "wrong mime type",
			id:    alice,
			input: UploadInput{Filename: "a.pdf", MIMEType: "application/pdf", Size: 3, Data: []byte("pdf")},
			check: func(err error) bool { return errors.Is(err, errors.ErrUnsupportedType) },
		},
		{
			name:  "extension not allowed",
			id:    alice,
			input: UploadInput{Filename: "a.ods", MIMEType: xlsxMIME, Size: int64(len(valid)), Data: valid},
			check: errors.IsValidation,
		},
		{
			name:  "too large",
			id:    alice,
			input: UploadInput{Filename: "a.xlsx", MIMEType: xlsxMIME, Size: 11 << 20, Data: valid},
			check: errors.IsValidation,
		},
		{
			name:  "not a workbook",
			id:    alice,
			input: UploadInput{Filename: "a.xlsx", MIMEType: xlsxMIME, Size: 9, Data: []byte("not excel")},
			check: errors.IsParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.files.Upload(context.Background(), tt.id, tt.input)
			if err == nil || !tt.check(err) {
				t.Errorf("Upload() error = %v", err)
			}
		})
	}

	if n := countRows(t, fx.db, "files"); n != 0 {
		t.Errorf("files rows = %d, want 0 after rejected uploads", n)
	}
}

func TestOwnershipIsOpaque(t *testing.T) {
	fx := newFixture(t)
	created := upload(t, fx, alice, "people.xlsx")
	ctx := context.Background()

	if _, err := fx.files.Get(ctx, bob, created.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get() by other owner error = %v, want ErrNotFound", err)
	}
	if err := fx.files.Delete(ctx, bob, created.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Delete() by other owner error = %v, want ErrNotFound", err)
	}
	if _, err := fx.files.DownloadBinary(ctx, bob, created.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("DownloadBinary() by other owner error = %v, want ErrNotFound", err)
	}
	if list, err := fx.files.List(ctx, bob); err != nil || len(list) != 0 {
		t.Errorf("List() for other owner = %v, %v", list, err)
	}
}

func TestGet_MalformedID(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.files.Get(context.Background(), alice, "undefined"); !errors.IsValidation(err) {
		t.Errorf("Get() error = %v, want validation error", err)
	}
	if err := fx.files.Delete(context.Background(), alice, "undefined"); !errors.IsValidation(err) {
		t.Errorf("Delete() error = %v, want validation error", err)
	}
}

func TestListOrderAndStats(t *testing.T) {
	fx := newFixture(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i, name := range []string{"t1.xlsx", "t2.xlsx", "t3.xlsx"} {
		at := base.Add(time.Duration(i) * time.Minute)
		fx.files.now = func() time.Time { return at }
		ids = append(ids, upload(t, fx, alice, name).ID)
	}

	list, err := fx.files.List(context.Background(), alice)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []string
	for _, f := range list {
		got = append(got, f.ID)
	}
	want := []string{ids[2], ids[1], ids[0]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() order = %v, want %v", got, want)
	}

	stats, err := fx.files.DashboardStats(context.Background(), alice)
	if err != nil {
		t.Fatalf("DashboardStats() error = %v", err)
	}
	if stats.FilesProcessed != 3 || stats.ChartsCreated != 15 || stats.ChartImports != 6 {
		t.Errorf("DashboardStats() = %+v", stats)
	}
	if len(stats.Estimated) != 2 {
		t.Errorf("Estimated = %v, want the derived counters listed", stats.Estimated)
	}
}

func TestDelete_RemovesRecordAndBlob(t *testing.T) {
	fx := newFixture(t)
	created := upload(t, fx, alice, "people.xlsx")
	ctx := context.Background()

	if err := fx.files.Delete(ctx, alice, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := fx.files.Get(ctx, alice, created.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	if ok, _ := fx.store.Exists(ctx, created.StoredName); ok {
		t.Errorf("blob %q still present", created.StoredName)
	}
	if err := fx.files.Delete(ctx, alice, created.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDelete_BlobFailureStillSucceeds(t *testing.T) {
	fx := newFixture(t)
	created := upload(t, fx, alice, "people.xlsx")
	fx.store.deleteErr = io.ErrUnexpectedEOF

	if err := fx.files.Delete(context.Background(), alice, created.ID); err != nil {
		t.Fatalf("Delete() error = %v, want success despite blob failure", err)
	}
	if len(fx.cleanup.jobs) != 1 || fx.cleanup.jobs[0].StoredName != created.StoredName {
		t.Errorf("cleanup jobs = %+v", fx.cleanup.jobs)
	}
}

func TestDownloadBinary(t *testing.T) {
	fx := newFixture(t)
	created := upload(t, fx, alice, "people.xlsx")
	ctx := context.Background()

	dl, err := fx.files.DownloadBinary(ctx, alice, created.ID)
	if err != nil {
		t.Fatalf("DownloadBinary() error = %v", err)
	}
	body, _ := io.ReadAll(dl.Body)
	dl.Body.Close()
	if dl.Filename != "people.xlsx" || len(body) != int(created.SizeBytes) {
		t.Errorf("DownloadBinary() = %q with %d bytes", dl.Filename, len(body))
	}

	if err := fx.store.Storage.Delete(ctx, created.StoredName); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := fx.files.DownloadBinary(ctx, alice, created.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("DownloadBinary() with missing blob error = %v, want ErrNotFound", err)
	}
}

func TestStoredName(t *testing.T) {
	at := time.Unix(0, 1700000000000000000)
	tests := []struct {
		in   string
		want string
	}{
		{"report.xlsx", "1700000000000000000-report.xlsx"},
		{"../../etc/passwd", "1700000000000000000-passwd"},
		{`C:\Users\me\q 1.xls`, "1700000000000000000-q_1.xls"},
		{".hidden", "1700000000000000000-hidden"},
		{"", "1700000000000000000-upload"},
	}
	for _, tt := range tests {
		if got := StoredName(at, tt.in); got != tt.want {
			t.Errorf("StoredName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAdmin_DefaultSettingsCreatedOnFirstRead(t *testing.T) {
	fx := newFixture(t)

	settings, err := fx.admin.GetSettings(context.Background(), admin)
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings.MaxFileSizeMB != 10 || !reflect.DeepEqual(settings.AllowedFileExtensions, []string{".xlsx", ".xls", ".csv"}) {
		t.Errorf("GetSettings() = %+v", settings)
	}
	if n := countRows(t, fx.db, "system_settings"); n != 1 {
		t.Errorf("system_settings rows = %d, want 1", n)
	}
}

func TestAdmin_NonAdminForbidden(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	calls := map[string]func() error{
		"GetSettings": func() error { _, err := fx.admin.GetSettings(ctx, alice); return err },
		"UpdateSettings": func() error {
			_, err := fx.admin.UpdateSettings(ctx, alice, model.SettingsUpdate{})
			return err
		},
		"ListUsers":  func() error { _, err := fx.admin.ListUsers(ctx, alice); return err },
		"GetUser":    func() error { _, err := fx.admin.GetUser(ctx, alice, "bad"); return err },
		"DeleteUser": func() error { return fx.admin.DeleteUser(ctx, alice, bob.UserID) },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, errors.ErrForbidden) {
			t.Errorf("%s() error = %v, want ErrForbidden", name, err)
		}
	}
}

func TestAdmin_UpdateSettings(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	updated, err := fx.admin.UpdateSettings(ctx, admin, model.SettingsUpdate{
		MaxFileSize:      25,
		AllowedFileTypes: "XLSX, .csv,,.csv",
	})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if updated.MaxFileSizeMB != 25 || !reflect.DeepEqual(updated.AllowedFileExtensions, []string{".xlsx", ".csv"}) {
		t.Errorf("UpdateSettings() = %+v", updated)
	}

	if _, err := fx.admin.UpdateSettings(ctx, admin, model.SettingsUpdate{MaxFileSize: 5}); !errors.IsValidation(err) {
		t.Errorf("UpdateSettings() without types error = %v", err)
	}
	if _, err := fx.admin.UpdateSettings(ctx, admin, model.SettingsUpdate{AllowedFileTypes: []interface{}{".xls"}}); !errors.IsValidation(err) {
		t.Errorf("UpdateSettings() without size error = %v", err)
	}

	// uploads follow the new limits
	data := peopleWorkbook(t)
	_, err = fx.files.Upload(ctx, alice, UploadInput{Filename: "a.xls", MIMEType: xlsxMIME, Size: int64(len(data)), Data: data})
	if !errors.IsValidation(err) {
		t.Errorf("Upload() of disallowed extension error = %v", err)
	}
}

func TestAdmin_DeleteUser(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	signed, err := fx.accounts.Signup(ctx, model.SignupRequest{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if err := fx.admin.DeleteUser(ctx, admin, admin.UserID); !errors.Is(err, errors.ErrSelfDeletion) {
		t.Errorf("DeleteUser(self) error = %v, want ErrSelfDeletion", err)
	}
	if err := fx.admin.DeleteUser(ctx, admin, signed.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := fx.admin.DeleteUser(ctx, admin, signed.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("DeleteUser(missing) error = %v, want ErrNotFound", err)
	}
	if err := fx.admin.DeleteUser(ctx, admin, "not-a-uuid"); !errors.IsValidation(err) {
		t.Errorf("DeleteUser(malformed) error = %v, want validation error", err)
	}
}

func TestAccount_SignupLogin(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	signed, err := fx.accounts.Signup(ctx, model.SignupRequest{Username: "dave", Email: "Dave@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if signed.Token == "" || signed.Role != model.RoleUser {
		t.Errorf("Signup() = %+v", signed)
	}

	if _, err := fx.accounts.Signup(ctx, model.SignupRequest{Username: "dave2", Email: "dave@example.com", Password: "secret2"}); !errors.Is(err, errors.ErrUserExists) {
		t.Errorf("duplicate Signup() error = %v, want ErrUserExists", err)
	}

	logged, err := fx.accounts.Login(ctx, model.LoginRequest{Email: "dave@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if logged.ID != signed.ID {
		t.Errorf("Login() id = %q, want %q", logged.ID, signed.ID)
	}

	for _, req := range []model.LoginRequest{
		{Email: "dave@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "secret1"},
	} {
		if _, err := fx.accounts.Login(ctx, req); !errors.Is(err, errors.ErrInvalidCredentials) {
			t.Errorf("Login(%s) error = %v, want ErrInvalidCredentials", req.Email, err)
		}
	}

	id := auth.Identity{UserID: signed.ID, Role: signed.Role}
	updated, err := fx.accounts.UpdateProfile(ctx, id, model.ProfileUpdate{Username: "  david "})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Username != "david" || !strings.EqualFold(updated.Email, "dave@example.com") {
		t.Errorf("UpdateProfile() = %+v", updated)
	}

	me, err := fx.accounts.Me(ctx, id)
	if err != nil || me.Username != "david" {
		t.Errorf("Me() = %+v, %v", me, err)
	}
}
