package echoapi

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academibot/channels/inbox"
	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/storage/replies"
)

type (
	messageApi struct {
		inbox Inbox
	}

	newMessage struct {
		Sender  string `json:"sender" validate:"required,address"`
		Subject string `json:"subject"`
		Body    string `json:"body" validate:"required"`
	}

	messageAccepted struct {
		ID string `json:"id"`
	}

	replyResponse struct {
		ID      string `json:"id"`
		Subject string `json:"subject,omitempty"`
		Body    string `json:"body"`
		SentAt  string `json:"sent_at"`
	}
)

func registerMessageAPI(g *echo.Group, in Inbox, inboundKey echo.MiddlewareFunc) {
	api := messageApi{inbox: in}

	mg := g.Group("/messages")
	mg.POST("", api.create)
	mg.GET("/:id/reply", api.reply)

	g.POST("/inbound/sendgrid", api.sendgridInbound, inboundKey)
}

// Handlers

func (api *messageApi) create(ctx echo.Context) error {
	var data newMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to newMessage")
	}
	data.Sender = core.CleanString(data.Sender)
	if err := core.CheckStruct(&data, "invalid message"); err != nil {
		return err
	}
	return api.enqueue(ctx, inbox.Incoming{
		Origin:  inbox.OriginHTTP,
		Sender:  data.Sender,
		Subject: data.Subject,
		Body:    data.Body,
	})
}

func (api *messageApi) enqueue(ctx echo.Context, inc inbox.Incoming) error {
	id, err := api.inbox.Enqueue(inc)
	if err != nil {
		if errors.Cause(err) == inbox.ErrQueueFull {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return errors.Wrap(err, "queueing message")
	}
	return ctx.JSON(http.StatusAccepted, messageAccepted{ID: id})
}

func (api *messageApi) reply(ctx echo.Context) error {
	r, err := api.inbox.Reply(ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
	case inbox.ErrPending:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case replies.ErrNotFound:
		return errHttpNotFound
	default:
		return errors.Wrap(err, "getting reply")
	}
	return ctx.JSON(http.StatusOK, replyResponse{
		ID:      r.MessageID,
		Subject: r.Subject,
		Body:    r.Body,
		SentAt:  r.SentAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// sendgridInbound accepts the SendGrid Inbound Parse webhook (multipart form with `from`, `subject`, `text` and `headers`).
func (api *messageApi) sendgridInbound(ctx echo.Context) error {
	from, err := mail.ParseAddress(ctx.FormValue("from"))
	if err != nil {
		return core.NewValidationError(
			core.NewArgumentError("invalid inbound mail"),
			core.FieldError{Field: "from", Error: err.Error()},
		)
	}
	msgID, refs := threadHeaders(ctx.FormValue("headers"))
	return api.enqueue(ctx, inbox.Incoming{
		Origin:     inbox.OriginMail,
		Sender:     from.Address,
		Subject:    ctx.FormValue("subject"),
		Body:       ctx.FormValue("text"),
		MessageID:  msgID,
		References: refs,
	})
}

// threadHeaders reads Message-ID and References out of a raw header block.
func threadHeaders(raw string) (string, []string) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	msg, err := mail.ReadMessage(strings.NewReader(strings.TrimRight(raw, "\n") + "\n\n"))
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(msg.Header.Get("Message-Id")), strings.Fields(msg.Header.Get("References"))
}
