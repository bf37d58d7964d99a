package middleware

import (
	"bytes"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/roulette/internal/present/rest/presenter"
)

var tracer = otel.Tracer("middleware")

// maxBodySize bounds what is buffered for verification.
const maxBodySize = 1 << 20

type SignatureMiddleware struct {
	signingSecret string
}

func NewSignatureMiddleware(signingSecret string) *SignatureMiddleware {
	return &SignatureMiddleware{
		signingSecret: signingSecret,
	}
}

// VerifySlack rejects requests whose X-Slack-Signature does not match the body.
// The body is restored afterwards so handlers can parse it again.
func (s *SignatureMiddleware) VerifySlack(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Roulette.Middleware.VerifySlack")
		defer span.End()

		req := c.Request()

		verifier, err := slack.NewSecretsVerifier(req.Header, s.signingSecret)
		if err != nil {
			span.RecordError(errors.Wrap(err, "missing signature headers"))
			return presenter.Unauthorized(c, "invalid request signature")
		}

		body, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
		if err != nil {
			span.RecordError(err)
			return presenter.BadRequestMessage(c, "unreadable body")
		}
		req.Body.Close()

		_, err = verifier.Write(body)
		if err != nil {
			span.RecordError(err)
			return presenter.InternalError(c, err)
		}

		err = verifier.Ensure()
		if err != nil {
			span.RecordError(errors.Wrap(err, "signature mismatch"))
			span.SetAttributes(attribute.Bool("verified", false))
			return presenter.Unauthorized(c, "invalid request signature")
		}
		span.SetAttributes(attribute.Bool("verified", true))

		req.Body = io.NopCloser(bytes.NewReader(body))
		c.SetRequest(req.WithContext(ctx))

		return next(c)
	}
}
