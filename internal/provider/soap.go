package provider

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"github.com/go-resty/resty/v2"
)

// DefaultSOAPEndpoint is the legacy Clickatell SOAP gateway endpoint.
const DefaultSOAPEndpoint = "http://api.clickatell.com/soap/document_literal/webservice"

// SOAPCredentials authenticate against the legacy gateway.
type SOAPCredentials struct {
	APIID    int
	Username string
	Password string
}

// ClickatellSOAPProvider drives the legacy SOAP gateway: authenticate for a
// session id, then send one message at a time. A batch is sent as one
// session with one sendmsg call per message; every message is attempted even
// when earlier ones fail.
type ClickatellSOAPProvider struct {
	client      *resty.Client
	endpoint    string
	credentials SOAPCredentials
}

func NewClickatellSOAPProvider(endpoint string, credentials SOAPCredentials) (*ClickatellSOAPProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewClickatellSOAPProviderWithClient(endpoint, credentials, client)
}

func NewClickatellSOAPProviderWithClient(endpoint string, credentials SOAPCredentials, client *resty.Client) (*ClickatellSOAPProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		trimmedEndpoint = DefaultSOAPEndpoint
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid soap gateway endpoint: %w", err)
	}
	if credentials.APIID <= 0 || strings.TrimSpace(credentials.Username) == "" || strings.TrimSpace(credentials.Password) == "" {
		return nil, fmt.Errorf("soap gateway credentials are required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &ClickatellSOAPProvider{
		client:      client,
		endpoint:    trimmedEndpoint,
		credentials: credentials,
	}, nil
}

func (p *ClickatellSOAPProvider) Send(ctx context.Context, msg domain.OutboundMessage) (*Response, error) {
	return p.SendBatch(ctx, []domain.OutboundMessage{msg})
}

func (p *ClickatellSOAPProvider) SendBatch(ctx context.Context, msgs []domain.OutboundMessage) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}
	for _, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid outbound message: %w", err)
		}
	}

	sessionID, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var sendErrs []error
	messageIDs := make([]string, 0, len(msgs))
	lastStatus := 0
	for _, msg := range msgs {
		messageID, statusCode, err := p.sendOne(ctx, sessionID, msg)
		lastStatus = statusCode
		if err != nil {
			sendErrs = append(sendErrs, fmt.Errorf("send to %s failed: %w", msg.Recipient.Phone, err))
			continue
		}
		messageIDs = append(messageIDs, messageID)
	}

	if len(sendErrs) > 0 {
		return nil, errors.Join(sendErrs...)
	}

	return &Response{
		StatusCode: lastStatus,
		Body:       strings.Join(messageIDs, ","),
		MessageID:  messageIDs[0],
	}, nil
}

func (p *ClickatellSOAPProvider) authenticate(ctx context.Context) (string, error) {
	body := fmt.Sprintf(authEnvelope,
		p.credentials.APIID,
		xmlEscape(p.credentials.Username),
		xmlEscape(p.credentials.Password),
	)

	values, err := p.call(ctx, body)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", &GatewayError{Message: "soap auth returned no result", Transient: true}
	}

	result := strings.TrimSpace(values[0])
	if !strings.HasPrefix(strings.ToUpper(result), "OK") {
		return "", &GatewayError{Message: fmt.Sprintf("soap auth rejected: %s", result)}
	}
	if len(result) <= 4 {
		return "", &GatewayError{Message: fmt.Sprintf("soap auth returned malformed session: %s", result)}
	}
	return result[4:], nil
}

func (p *ClickatellSOAPProvider) sendOne(ctx context.Context, sessionID string, msg domain.OutboundMessage) (string, int, error) {
	from := ""
	if sender := strings.TrimSpace(msg.Sender); sender != "" {
		from = fmt.Sprintf(fromElement, xmlEscape(sender))
	}

	body := fmt.Sprintf(sendEnvelope,
		xmlEscape(sessionID),
		p.credentials.APIID,
		xmlEscape(p.credentials.Username),
		xmlEscape(p.credentials.Password),
		xmlEscape(msg.Recipient.Phone),
		from,
		xmlEscape(msg.Text),
	)

	values, err := p.call(ctx, body)
	if err != nil {
		var gatewayErr *GatewayError
		if errors.As(err, &gatewayErr) {
			return "", gatewayErr.StatusCode, err
		}
		return "", 0, err
	}
	if len(values) == 0 {
		return "", http.StatusOK, &GatewayError{Message: "soap sendmsg returned no result", Transient: true}
	}

	result := strings.TrimSpace(values[0])
	if !strings.HasPrefix(strings.ToUpper(result), "ID") {
		return "", http.StatusOK, &GatewayError{Message: fmt.Sprintf("soap sendmsg rejected: %s", result)}
	}
	return strings.TrimSpace(strings.TrimPrefix(result[2:], ":")), http.StatusOK, nil
}

func (p *ClickatellSOAPProvider) call(ctx context.Context, envelope string) ([]string, error) {
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetBody(envelope).
		Post(p.endpoint)
	if err != nil {
		return nil, &GatewayError{
			Message:   "soap gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &GatewayError{
			StatusCode: statusCode,
			Message:    gatewayErrorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	return soapReturnValues(response.Body()), nil
}

const (
	authEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:click="http://api.clickatell.com/soap/webservice">
  <soap:Body>
    <click:auth>
      <api_id>%d</api_id>
      <user>%s</user>
      <password>%s</password>
    </click:auth>
  </soap:Body>
</soap:Envelope>`

	sendEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:click="http://api.clickatell.com/soap/webservice">
  <soap:Body>
    <click:sendmsg>
      <session_id>%s</session_id>
      <api_id>%d</api_id>
      <user>%s</user>
      <password>%s</password>
      <to>%s</to>%s
      <text>%s</text>
    </click:sendmsg>
  </soap:Body>
</soap:Envelope>`

	fromElement = "\n      <from>%s</from>"
)

func xmlEscape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

// soapReturnValues collects the character data of every <return> element in
// a SOAP response body.
func soapReturnValues(body []byte) []string {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	var values []string
	inReturn := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return values
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "return" {
				inReturn = true
			}
		case xml.EndElement:
			if t.Name.Local == "return" {
				inReturn = false
			}
		case xml.CharData:
			if inReturn {
				values = append(values, string(t))
			}
		}
	}

	return values
}
