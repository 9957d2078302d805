package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/devcon26/registration-api/middleware"
	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/services"
)

type AdminUserHandler struct {
	adminUserService services.AdminUserService
}

func NewAdminUserHandler(s services.AdminUserService) *AdminUserHandler {
	return &AdminUserHandler{adminUserService: s}
}

// ListUsers godoc
// @Summary Список пользователей
// @Tags admin
// @Produce json
// @Param role query string false "participant | ambassador | admin"
// @Param search query string false "Имя или email"
// @Param page query int false "Страница" default(1)
// @Param limit query int false "Размер страницы" default(20)
// @Success 200 {object} models.UserListResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.UserFilter{
		Search: q.Get("search"),
		Page:   toInt(q.Get("page"), 1),
		Limit:  toInt(q.Get("limit"), 20),
	}
	if role := q.Get("role"); role != "" {
		userRole := models.UserRole(role)
		if !userRole.Valid() {
			mapServiceErrorToHTTP(w, r, services.ErrInvalidRole)
			return
		}
		filter.Role = &userRole
	}

	res, err := h.adminUserService.ListUsers(r.Context(), filter)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateUserRole godoc
// @Summary Сменить роль пользователя
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param body body object true "role"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Неизвестная роль"
// @Failure 403 {object} map[string]string "Нельзя понизить самого себя"
// @Failure 404 {object} map[string]string "Пользователь не найден"
// @Security BearerAuth
// @Router /admin/users/{id}/role [put]
func (h *AdminUserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID, err := idFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Role models.UserRole `json:"role"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.adminUserService.UpdateUserRole(r.Context(), userID, input.Role, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, user, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdminHandler — сводка, платежи и выгрузка.
type AdminHandler struct {
	dashboardService services.DashboardService
	paymentService   services.AdminPaymentService
	exportService    services.ExportService
}

func NewAdminHandler(ds services.DashboardService, ps services.AdminPaymentService, es services.ExportService) *AdminHandler {
	return &AdminHandler{dashboardService: ds, paymentService: ps, exportService: es}
}

// Dashboard godoc
// @Summary Сводка для администратора
// @Tags admin
// @Produce json
// @Success 200 {object} models.DashboardStats
// @Security BearerAuth
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardService.GetStats(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := writeJSON(w, http.StatusOK, stats, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// VerifyPayment godoc
// @Summary Одобрить или отклонить онлайн-платёж
// @Tags admin
// @Produce json
// @Param id path int true "Payment ID"
// @Param approve query bool false "true — одобрить, false — отклонить" default(true)
// @Success 200 {object} services.VerificationResult
// @Failure 404 {object} map[string]string "Платёж не найден"
// @Failure 409 {object} map[string]string "Платёж уже обработан"
// @Security BearerAuth
// @Router /admin/verify-payment/{id} [post]
func (h *AdminHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := idFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	approve := true
	if raw := r.URL.Query().Get("approve"); raw != "" {
		approve, err = strconv.ParseBool(raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid approve value %q", raw))
			return
		}
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	res, err := h.paymentService.VerifyPayment(r.Context(), paymentID, approve, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPayments godoc
// @Summary Очередь платежей
// @Tags admin
// @Produce json
// @Param status query string false "pending | verified | rejected"
// @Param page query int false "Страница" default(1)
// @Param limit query int false "Размер страницы" default(50)
// @Success 200 {array} models.Payment
// @Security BearerAuth
// @Router /admin/payments [get]
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payments, err := h.paymentService.ListPayments(r.Context(), q.Get("status"), toInt(q.Get("page"), 1), toInt(q.Get("limit"), 50))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, payments, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Receipt godoc
// @Summary Скачать чек платежа
// @Tags admin
// @Produce octet-stream
// @Param id path int true "Payment ID"
// @Success 200 {file} file
// @Success 307 "Редирект на публичный URL хранилища"
// @Failure 404 {object} map[string]string "Чек не найден"
// @Security BearerAuth
// @Router /admin/payments/{id}/receipt [get]
func (h *AdminHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	paymentID, err := idFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	receipt, err := h.paymentService.OpenReceipt(r.Context(), paymentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if receipt.PublicURL != "" {
		http.Redirect(w, r, receipt.PublicURL, http.StatusTemporaryRedirect)
		return
	}
	defer receipt.Body.Close()

	w.Header().Set("Content-Type", receipt.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", contentDisposition("inline", receipt.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, receipt.Body); err != nil && !errors.Is(err, r.Context().Err()) {
		// заголовки уже отправлены, остаётся только лог
		logCopyError(r, err)
	}
}

// Export godoc
// @Summary Выгрузка регистраций
// @Tags admin
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv | excel" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} map[string]string "Неизвестный формат"
// @Security BearerAuth
// @Router /admin/export [get]
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	file, err := h.exportService.ExportRegistrations(r.Context(), r.URL.Query().Get("format"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition("attachment", file.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		logCopyError(r, err)
	}
}
