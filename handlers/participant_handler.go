package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/devcon26/registration-api/middleware"
	"github.com/devcon26/registration-api/services"
)

// Запас на служебные части multipart сверх самого файла.
const multipartOverhead = 1 << 20

type ParticipantHandler struct {
	participantService services.ParticipantService
	maxFileSize        int64
}

func NewParticipantHandler(ps services.ParticipantService, maxFileSize int64) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: ps,
		maxFileSize:        maxFileSize,
	}
}

// Register godoc
// @Summary Регистрация участника Devcon '26
// @Tags participants
// @Description Создаёт профиль участника. Можно создать команду (create_new_team + team_name) или присоединиться по team_code.
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Трек и команда"
// @Success 200 {object} models.Participant
// @Failure 400 {object} map[string]string "Ошибка валидации / профиль уже существует / трек не совпадает"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Failure 409 {object} map[string]string "Команда заполнена / имя занято"
// @Security BearerAuth
// @Router /participants/register [post]
func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.Register(r.Context(), input, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, participant, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Me godoc
// @Summary Профиль текущего участника
// @Tags participants
// @Produce json
// @Success 200 {object} models.Participant
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет профиля участника"
// @Security BearerAuth
// @Router /participants/me [get]
func (h *ParticipantHandler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.ParticipantFromContext(r.Context())
	if !ok {
		forbiddenResponse(w, r, services.ErrParticipantRequired.Error())
		return
	}

	participant, err := h.participantService.GetProfile(r.Context(), current.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, participant, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadOnlinePayment godoc
// @Summary Загрузить чек онлайн-оплаты
// @Tags participants
// @Accept mpfd
// @Produce json
// @Param transaction_id formData string true "ID транзакции"
// @Param receipt formData file true "Чек (jpg, jpeg, png, pdf)"
// @Success 200 {object} map[string]interface{} "message, payment_id"
// @Failure 400 {object} map[string]string "Недопустимый файл"
// @Failure 403 {object} map[string]string "Нет профиля участника"
// @Failure 409 {object} map[string]string "Платёж уже обработан"
// @Security BearerAuth
// @Router /participants/payment/online [post]
func (h *ParticipantHandler) UploadOnlinePayment(w http.ResponseWriter, r *http.Request) {
	participant, ok := middleware.ParticipantFromContext(r.Context())
	if !ok {
		forbiddenResponse(w, r, services.ErrParticipantRequired.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			mapServiceErrorToHTTP(w, r, services.ErrReceiptTooLarge)
			return
		}
		badRequestResponse(w, r, errors.New("request must be multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("receipt")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			mapServiceErrorToHTTP(w, r, services.ErrReceiptRequired)
			return
		}
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	payment, err := h.participantService.UploadPaymentProof(r.Context(), participant, services.UploadReceiptInput{
		TransactionID: strings.TrimSpace(r.FormValue("transaction_id")),
		FileName:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Size:          header.Size,
		File:          file,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	resp := jsonResponse{"message": "Payment proof uploaded successfully", "payment_id": payment.ID}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeclareCashPayment godoc
// @Summary Оплата наличными на стойке
// @Tags participants
// @Description Создаёт pending-платёж наличными; подтверждает его амбассадор.
// @Produce json
// @Success 200 {object} map[string]interface{} "message, payment_id"
// @Failure 403 {object} map[string]string "Нет профиля участника"
// @Failure 409 {object} map[string]string "Платёж уже обработан"
// @Security BearerAuth
// @Router /participants/payment/cash [post]
func (h *ParticipantHandler) DeclareCashPayment(w http.ResponseWriter, r *http.Request) {
	participant, ok := middleware.ParticipantFromContext(r.Context())
	if !ok {
		forbiddenResponse(w, r, services.ErrParticipantRequired.Error())
		return
	}

	payment, err := h.participantService.DeclareCashPayment(r.Context(), participant)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	resp := jsonResponse{"message": "Cash payment declared, pay at the registration desk", "payment_id": payment.ID}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
