package api

import (
	"net/http"

	"github.com/rpupo63/portfolio-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contactHandler struct {
	responder Responder
	logger    zerolog.Logger
	mailer    services.Mailer
	recipient string
	metrics   *metricsCollector
}

func newContactHandler(mailer services.Mailer, recipient string, metrics *metricsCollector) contactHandler {
	logger := log.With().Str("handlerName", "contactHandler").Logger()

	return contactHandler{
		responder: NewResponder(logger),
		logger:    logger,
		mailer:    mailer,
		recipient: recipient,
		metrics:   metrics,
	}
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
}

func (in *contactRequest) decode(r *http.Request) error {
	p, err := readPayload(r, mediaJSON, mediaForm, mediaMultipart)
	if err != nil {
		return err
	}

	fields := newFieldReader(p, false)
	fields.required("name", "email", "subject", "message")
	fields.String("name", &in.Name)
	fields.String("email", &in.Email)
	fields.String("subject", &in.Subject)
	fields.String("message", &in.Message)

	validateInto(in, fields.errs)
	return fields.errs.OrNil()
}

// send forwards a visitor's message to the site owner
// @Summary Send contact message
// @Tags Contact
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param message body contactRequest true "Message"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} map[string][]string
// @Failure 500 {object} PlainErrorResponse
// @Router /contact/ [post]
func (h contactHandler) send() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in contactRequest
		if err := in.decode(r); err != nil {
			h.metrics.contactMessage("invalid")
			h.responder.WriteError(w, err)
			return
		}

		email := services.ContactEmail(services.ContactMessage{
			Name:    in.Name,
			Email:   in.Email,
			Subject: in.Subject,
			Message: in.Message,
		}, h.recipient)

		if err := h.mailer.Send(r.Context(), email); err != nil {
			h.metrics.contactMessage("failed")
			h.logger.Error().Err(err).Str("from", in.Email).Msg("failed to send contact message")
			h.responder.WriteJSONStatus(w, http.StatusInternalServerError, PlainErrorResponse{
				Error: "Failed to send message",
			})
			return
		}

		h.metrics.contactMessage("sent")
		h.responder.WriteJSON(w, MessageResponse{Message: "Message sent successfully"})
	}
}
