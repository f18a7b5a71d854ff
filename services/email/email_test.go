package emailsvc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/tests"
)

var conf = &core.Config{
	AppName: "academibot",
	Mail:    core.MailConfig{Backend: "sendgrid", APIKey: "key", FromEmail: "bot@uni.edu", FromName: "Bot"},
}

func reply() *core.EmailMessage {
	return &core.EmailMessage{
		To:         []mail.Address{{Address: "stu@uni.edu"}},
		Subject:    "Re: hw",
		BodyStr:    "academibot reply.\n",
		Footer:     "To stop receiving messages, send :block",
		InReplyTo:  "<2@uni.edu>",
		References: []string{"<1@uni.edu>", "<2@uni.edu>"},
	}
}

func TestConsoleService(t *testing.T) {
	nowFunc = func() time.Time { return time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = time.Now }()

	out := new(bytes.Buffer)
	svc := NewConsoleService(conf, out)
	svc.SendMessages(reply(), &core.EmailMessage{Subject: "nobody to send to", BodyStr: "x"})

	if sent := svc.Sent(); len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	for _, want := range []string{
		"From: \"Bot\" <bot@uni.edu>\r\n",
		"Subject: [academibot] Re: hw\r\n",
		"To: <stu@uni.edu>\r\n",
		"In-Reply-To: <2@uni.edu>\r\n",
		"References: <1@uni.edu> <2@uni.edu>\r\n",
		"academibot reply.\r\n\r\nTo stop receiving messages, send :block\r\n",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output is missing %q:\n%s", want, out.String())
		}
	}
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(conf)
	svc.SendMessages(reply(), reply())
	if n := len(svc.Sent()); n != 2 {
		t.Errorf("sent %d messages, want 2", n)
	}
}

func TestSendgridService(t *testing.T) {
	orig := sendgridAPIFunc
	defer func() { sendgridAPIFunc = orig }()

	tests := []struct {
		name       string
		res        *rest.Response
		err        error
		wantErrors int
	}{
		{"accepted", &rest.Response{StatusCode: http.StatusAccepted}, nil, 0},
		{"rejected", &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil, 1},
		{"unreachable", nil, errors.New("dial tcp: timeout"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reqs []rest.Request
			sendgridAPIFunc = func(req rest.Request) (*rest.Response, error) {
				reqs = append(reqs, req)
				return tt.res, tt.err
			}
			log := new(testutil.Logger)
			NewSendgridService(conf, log).SendMessages(reply())

			if len(reqs) != 1 {
				t.Fatalf("made %d requests, want 1", len(reqs))
			}
			if n := log.Count("ERROR"); n != tt.wantErrors {
				t.Errorf("logged %d errors, want %d: %v", n, tt.wantErrors, log.Entries)
			}

			var body struct {
				Headers map[string]string `json:"headers"`
				Content []struct {
					Value string `json:"value"`
				} `json:"content"`
			}
			if err := json.Unmarshal(reqs[0].Body, &body); err != nil {
				t.Fatalf("request body: %v", err)
			}
			if body.Headers["In-Reply-To"] != "<2@uni.edu>" || body.Headers["References"] != "<1@uni.edu> <2@uni.edu>" {
				t.Errorf("headers = %v", body.Headers)
			}
			if len(body.Content) != 1 || !strings.HasSuffix(body.Content[0].Value, ":block\n") {
				t.Errorf("content = %+v", body.Content)
			}
			if reqs[0].Headers["Authorization"] != "Bearer key" {
				t.Errorf("authorization = %q", reqs[0].Headers["Authorization"])
			}
		})
	}
}
