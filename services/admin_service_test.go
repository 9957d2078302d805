package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/xuri/excelize/v2"

	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/repositories"
)

func TestDashboard_ReadsOneSnapshot(t *testing.T) {
	conn, mock := newTxMock(t)
	svc := NewDashboardService(conn, repositories.NewPostgresDashboardRepository(conn), discardLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM participants`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`FROM payments`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "verified", "rejected", "sum"}).AddRow(4, 1, 2, 1, int64(1000)))
	mock.ExpectQuery(`SELECT track, COUNT\(\*\) FROM participants GROUP BY track`).
		WillReturnRows(sqlmock.NewRows([]string{"track", "count"}).AddRow("web", 3).AddRow("ai_ml", 2))
	mock.ExpectQuery(`GROUP BY u.university`).
		WillReturnRows(sqlmock.NewRows([]string{"university", "count"}).AddRow("NUST", 4).AddRow("FAST", 1))
	mock.ExpectCommit()

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	sum := 0
	for _, n := range stats.TrackDistribution {
		sum += n
	}
	if sum != stats.TotalParticipants {
		t.Errorf("track distribution sums to %d, total is %d", sum, stats.TotalParticipants)
	}
	if stats.PaymentsSummary.Verified != 2 || stats.PaymentsSummary.VerifiedAmount != 1000 {
		t.Errorf("payments summary = %+v", stats.PaymentsSummary)
	}
	if stats.UniversityDistribution["NUST"] != 4 {
		t.Errorf("university distribution = %v", stats.UniversityDistribution)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDashboard_RollsBackOnQueryError(t *testing.T) {
	conn, mock := newTxMock(t)
	svc := NewDashboardService(conn, repositories.NewPostgresDashboardRepository(conn), discardLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM participants`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := svc.GetStats(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func exportFixture() ExportService {
	repo := newFakeParticipantRepo()
	team := "Byte Me"
	verified := models.PaymentStatusVerified
	repo.rows = []models.RegistrationRow{
		{ParticipantID: 1, FullName: "Ada Lovelace", Email: "ada@uni.edu", University: "NUST", Track: models.TrackWeb, TeamName: &team, PaymentStatus: &verified},
		{ParticipantID: 2, FullName: "Alan Turing", Email: "alan@uni.edu", University: "FAST", Track: models.TrackAIML},
	}
	return NewExportService(repo)
}

func TestExportRegistrations_CSV(t *testing.T) {
	svc := exportFixture()

	file, err := svc.ExportRegistrations(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportRegistrations() error = %v", err)
	}
	if file.FileName != "devcon26_registrations.csv" || file.ContentType != "text/csv" {
		t.Errorf("file = %s (%s)", file.FileName, file.ContentType)
	}

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	if err != nil {
		t.Fatalf("csv read: %v", err)
	}
	want := [][]string{
		{"Full Name", "Email", "University", "Track", "Team", "Payment Status"},
		{"Ada Lovelace", "ada@uni.edu", "NUST", "web", "Byte Me", "verified"},
		{"Alan Turing", "alan@uni.edu", "FAST", "ai_ml", "Individual", "No Payment"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records = %v, want %v", records, want)
	}
}

func TestExportRegistrations_Excel(t *testing.T) {
	svc := exportFixture()

	file, err := svc.ExportRegistrations(context.Background(), "excel")
	if err != nil {
		t.Fatalf("ExportRegistrations() error = %v", err)
	}
	if file.FileName != "devcon26_registrations.xlsx" {
		t.Errorf("FileName = %s", file.FileName)
	}

	book, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer book.Close()

	if sheets := book.GetSheetList(); len(sheets) != 1 || sheets[0] != "Registrations" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := book.GetRows("Registrations")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[2][4] != "Individual" || rows[2][5] != "No Payment" {
		t.Errorf("row 3 = %v", rows[2])
	}
}

func TestExportRegistrations_UnknownFormat(t *testing.T) {
	svc := exportFixture()

	_, err := svc.ExportRegistrations(context.Background(), "pdf")
	if !errors.Is(err, ErrUnsupportedExportFormat) || !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("err = %v, want unsupported format", err)
	}
}

func TestAdminVerifyPayment_Messages(t *testing.T) {
	repo := newFakePaymentRepo()
	payments := NewPaymentService(repo, nil, nil, nil, discardLogger())
	svc := NewAdminPaymentService(payments, repo, newMemUploader())

	approved := repo.add(models.Payment{ParticipantID: 1, Method: models.PaymentMethodOnline, Status: models.PaymentStatusPending})
	rejected := repo.add(models.Payment{ParticipantID: 2, Method: models.PaymentMethodOnline, Status: models.PaymentStatusPending})

	res, err := svc.VerifyPayment(context.Background(), approved.ID, true, 1)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Message != "Payment approved" || res.PaymentID != approved.ID {
		t.Errorf("approve result = %+v", res)
	}

	res, err = svc.VerifyPayment(context.Background(), rejected.ID, false, 1)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.Message != "Payment rejected" || res.PaymentID != rejected.ID {
		t.Errorf("reject result = %+v", res)
	}
	stored, _ := repo.FindByID(context.Background(), rejected.ID)
	if stored.Status != models.PaymentStatusRejected {
		t.Errorf("status = %s, want rejected", stored.Status)
	}
}

func TestAdminListPayments_FiltersByStatus(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewAdminPaymentService(NewPaymentService(repo, nil, nil, nil, discardLogger()), repo, newMemUploader())
	repo.add(models.Payment{ParticipantID: 1, Status: models.PaymentStatusPending})
	repo.add(models.Payment{ParticipantID: 2, Status: models.PaymentStatusVerified})

	list, err := svc.ListPayments(context.Background(), "pending", 1, 10)
	if err != nil {
		t.Fatalf("ListPayments() error = %v", err)
	}
	if len(list) != 1 || list[0].ParticipantID != 1 {
		t.Errorf("list = %+v", list)
	}

	if _, err := svc.ListPayments(context.Background(), "refunded", 1, 10); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestAdminOpenReceipt(t *testing.T) {
	repo := newFakePaymentRepo()
	uploader := newMemUploader()
	svc := NewAdminPaymentService(NewPaymentService(repo, nil, nil, nil, discardLogger()), repo, uploader)

	key := "receipt_1_scan.pdf"
	uploader.objects[key] = []byte("%PDF")
	withReceipt := repo.add(models.Payment{ParticipantID: 1, Status: models.PaymentStatusPending, ReceiptPath: &key})
	cash := repo.add(models.Payment{ParticipantID: 2, Method: models.PaymentMethodCash, Status: models.PaymentStatusPending})

	file, err := svc.OpenReceipt(context.Background(), withReceipt.ID)
	if err != nil {
		t.Fatalf("OpenReceipt() error = %v", err)
	}
	defer file.Body.Close()
	data, _ := io.ReadAll(file.Body)
	if string(data) != "%PDF" || file.ContentType != "application/pdf" {
		t.Errorf("receipt = %q (%s)", data, file.ContentType)
	}

	if _, err := svc.OpenReceipt(context.Background(), cash.ID); !errors.Is(err, ErrReceiptUnavailable) {
		t.Errorf("cash payment err = %v, want ErrReceiptUnavailable", err)
	}
	if _, err := svc.OpenReceipt(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing payment err = %v, want not found", err)
	}
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := []models.User{}
	for _, u := range r.users {
		if filter.Role == nil || u.Role == *filter.Role {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id int, role models.UserRole) error {
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func TestAdminUpdateUserRole(t *testing.T) {
	repo := &fakeUserRepo{users: map[int]*models.User{
		1: {ID: 1, FullName: "Admin", Role: models.RoleAdmin},
		2: {ID: 2, FullName: "Helper", Role: models.RoleParticipant},
	}}
	svc := NewAdminUserService(repo, discardLogger())

	user, err := svc.UpdateUserRole(context.Background(), 2, models.RoleAmbassador, 1)
	if err != nil {
		t.Fatalf("UpdateUserRole() error = %v", err)
	}
	if user.Role != models.RoleAmbassador {
		t.Errorf("role = %s", user.Role)
	}

	if _, err := svc.UpdateUserRole(context.Background(), 1, models.RoleParticipant, 1); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("self-demotion err = %v, want forbidden", err)
	}
	if _, err := svc.UpdateUserRole(context.Background(), 2, "superuser", 1); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("bad role err = %v, want validation", err)
	}
	if _, err := svc.UpdateUserRole(context.Background(), 77, models.RoleAdmin, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user err = %v, want not found", err)
	}
}

func TestAdminListUsers_Defaults(t *testing.T) {
	repo := &fakeUserRepo{users: map[int]*models.User{1: {ID: 1, Role: models.RoleAdmin}}}
	svc := NewAdminUserService(repo, discardLogger())

	res, err := svc.ListUsers(context.Background(), models.UserFilter{})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if res.Page != 1 || res.Limit != 20 || res.TotalCount != 1 {
		t.Errorf("res = %+v", res)
	}
}
