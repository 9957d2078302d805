package handlers

import (
	"net/http"

	"github.com/devcon26/registration-api/middleware"
	"github.com/devcon26/registration-api/services"
)

type AmbassadorHandler struct {
	ambassadorService services.AmbassadorService
}

func NewAmbassadorHandler(s services.AmbassadorService) *AmbassadorHandler {
	return &AmbassadorHandler{ambassadorService: s}
}

// Search godoc
// @Summary Поиск участника на стойке регистрации
// @Tags ambassador
// @Produce json
// @Param email query string false "Email (частичное совпадение)"
// @Param student_id query string false "Студенческий ID (точное совпадение)"
// @Success 200 {array} models.ParticipantSearchResult
// @Failure 400 {object} map[string]string "Не передан ни email, ни student_id"
// @Failure 403 {object} map[string]string "Нет прав"
// @Security BearerAuth
// @Router /ambassador/search [get]
func (h *AmbassadorHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	results, err := h.ambassadorService.Search(r.Context(), q.Get("email"), q.Get("student_id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, results, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// VerifyCash godoc
// @Summary Подтвердить оплату наличными
// @Tags ambassador
// @Accept json
// @Produce json
// @Param body body object true "participant_id"
// @Success 200 {object} services.VerificationResult
// @Failure 400 {object} map[string]string "Некорректный participant_id"
// @Failure 404 {object} map[string]string "Платёж не найден"
// @Failure 409 {object} map[string]string "Платёж уже обработан"
// @Security BearerAuth
// @Router /ambassador/verify-cash [post]
func (h *AmbassadorHandler) VerifyCash(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		ParticipantID int `json:"participant_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.ambassadorService.VerifyCash(r.Context(), input.ParticipantID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
