/*
Package extraction reads invoices and wholesale orders with Gemini.

PURPOSE:
  Implements bakery.Extractor over the Gemini generateContent REST API.
  Results are proposals: invoice lines still go through human matching, and
  wholesale orders are matched to SKUs by name downstream.

RESILIENCE:
  Each attempt runs through a circuit breaker. Retryable failures (network
  errors, 429, 5xx, empty or non-JSON model output) are retried with
  exponential backoff: 1s, 2s, 4s by default. Client errors (other 4xx) and
  an open breaker fail immediately. Timeouts come from the caller's context
  plus the HTTP client timeout.

JSON MODE:
  Requests set responseMimeType=application/json with a response schema, so
  the model's text part is parsed directly as JSON.

SEE ALSO:
  - bakery/service.go: IngestInvoice, IngestWholesaleOrders
*/
package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

var _ bakery.Extractor = (*GeminiClient)(nil)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

var (
	ErrNoAPIKey      = errors.New("extraction: GEMINI_API_KEY not configured")
	ErrEmptyResponse = errors.New("extraction: model returned no text")
)

// =============================================================================
// CONFIG
// =============================================================================

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration

	// Retries after the first attempt.
	Retries       int
	InitialDelay  time.Duration
	BackoffFactor float64

	// Consecutive failures that open the breaker, and how long it stays open.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		Model:            DefaultModel,
		BaseURL:          DefaultBaseURL,
		Timeout:          60 * time.Second,
		Retries:          3,
		InitialDelay:     time.Second,
		BackoffFactor:    2,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	return c
}

// =============================================================================
// CLIENT
// =============================================================================

type GeminiClient struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

func NewGeminiClient(cfg Config, log zerolog.Logger) *GeminiClient {
	cfg = cfg.withDefaults()
	c := &GeminiClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A rejected request says nothing about the service's health.
			var se *statusError
			return err == nil || (errors.As(err, &se) && !se.retryable())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c
}

// State reports the breaker state ("closed", "open", "half-open").
func (c *GeminiClient) State() string {
	return c.breaker.State().String()
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
	Temperature      float32         `json:"temperature"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// statusError is a non-200 reply from the API.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("extraction: gemini HTTP %d", e.Code)
	}
	return fmt.Sprintf("extraction: gemini error %d: %s", e.Code, e.Message)
}

func (e *statusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// =============================================================================
// CALLS
// =============================================================================

// generate runs one prompt with retries and decodes the model's JSON into out.
func (c *GeminiClient) generate(ctx context.Context, req request, out any) error {
	if c.cfg.APIKey == "" {
		return ErrNoAPIKey
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("extraction: encode request: %w", err)
	}

	delay := c.cfg.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			c.log.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("gemini call failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.cfg.BackoffFactor)
		}

		_, err := c.breaker.Execute(func() (interface{}, error) {
			text, err := c.do(ctx, body)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal([]byte(text), out); err != nil {
				return nil, fmt.Errorf("extraction: model output is not valid JSON: %w", err)
			}
			return nil, nil
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			return err
		}
	}
	return fmt.Errorf("extraction: gave up after %d attempts: %w", c.cfg.Retries+1, lastErr)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	return true
}

func (c *GeminiClient) do(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("extraction: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("extraction: http call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("extraction: read response: %w", err)
	}

	var decoded response
	jsonErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode != http.StatusOK {
		se := &statusError{Code: resp.StatusCode}
		if jsonErr == nil && decoded.Error != nil {
			se.Message = decoded.Error.Message
		}
		return "", se
	}
	if jsonErr != nil {
		return "", fmt.Errorf("extraction: decode response: %w", jsonErr)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// =============================================================================
// INVOICES
// =============================================================================

const invoicePrompt = "Analiza la imagen de esta factura o remito. Extrae cada línea de producto. " +
	"Para cada línea, identifica: 1. El nombre del producto o descripción. 2. La cantidad comprada. " +
	"3. El precio unitario NETO (sin IVA u otros impuestos). Si solo está el precio total, calcúlalo " +
	"dividiendo por la cantidad. Ignora subtotales, totales, impuestos y cualquier otra información " +
	"que no sea un producto. Devuelve un array de objetos JSON con los datos extraídos, siguiendo el esquema."

var invoiceSchema = json.RawMessage(`{
  "type": "ARRAY",
  "items": {
    "type": "OBJECT",
    "properties": {
      "productName": {"type": "STRING", "description": "Nombre o descripción del producto."},
      "quantity": {"type": "NUMBER", "description": "Cantidad de unidades compradas."},
      "unitPrice": {"type": "NUMBER", "description": "Precio unitario neto (sin impuestos)."}
    },
    "required": ["productName", "quantity", "unitPrice"]
  }
}`)

// ExtractInvoice reads the product lines of an invoice image or PDF.
// Lines without a product name are dropped.
func (c *GeminiClient) ExtractInvoice(ctx context.Context, fileContent []byte, mimeType string) ([]bakery.ExtractedLine, error) {
	req := request{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: invoicePrompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(fileContent)}},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   invoiceSchema,
			Temperature:      0.1,
		},
	}

	var lines []bakery.ExtractedLine
	if err := c.generate(ctx, req, &lines); err != nil {
		return nil, err
	}
	out := lines[:0]
	for _, l := range lines {
		l.ProductName = strings.TrimSpace(l.ProductName)
		if l.ProductName == "" {
			continue
		}
		out = append(out, l)
	}
	c.log.Info().Int("lines", len(out)).Str("mime", mimeType).Msg("invoice extracted")
	return out, nil
}

// =============================================================================
// WHOLESALE ORDERS
// =============================================================================

var ordersSchema = json.RawMessage(`{
  "type": "ARRAY",
  "items": {
    "type": "OBJECT",
    "properties": {
      "storeName": {"type": "STRING", "description": "Nombre de la tienda."},
      "date": {"type": "STRING", "description": "Fecha del pedido en formato YYYY-MM-DD."},
      "items": {
        "type": "ARRAY",
        "items": {
          "type": "OBJECT",
          "properties": {
            "skuName": {"type": "STRING", "description": "Nombre del producto (SKU)."},
            "quantity": {"type": "NUMBER", "description": "Cantidad pedida."}
          },
          "required": ["skuName", "quantity"]
        }
      }
    },
    "required": ["storeName", "date", "items"]
  }
}`)

func ordersPrompt(fileContent string, skuNames []string, storeName string, weekStart generic.Date) string {
	var b strings.Builder
	b.WriteString("Eres un asistente de entrada de datos para una panadería. Analiza el contenido de un archivo de pedido mayorista y conviértelo en una serie de pedidos diarios.\n\n")
	b.WriteString("Contexto:\n")
	fmt.Fprintf(&b, "- El archivo representa el pedido de una semana completa para la tienda: %q.\n", storeName)
	fmt.Fprintf(&b, "- La semana comienza el lunes %s.\n", weekStart)
	b.WriteString("- Las filas son productos y las columnas días de la semana (LUNES, MARTES, etc.). Las celdas son cantidades.\n")
	b.WriteString("- Ignora filas sin cantidades y columnas que no sean días (TOTALES, CATEGORÍA, ...).\n")
	b.WriteString("- No generes un objeto para días sin pedidos.\n\n")
	fmt.Fprintf(&b, "Genera un array JSON con un objeto por día con pedidos. La fecha (YYYY-MM-DD) se calcula desde %s (lunes = fecha de inicio). ", weekStart)
	fmt.Fprintf(&b, "storeName es siempre %q. items contiene solo los productos pedidos ese día, con skuName y quantity.\n\n", storeName)
	b.WriteString("SKUs válidos:\n")
	for _, name := range skuNames {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	fmt.Fprintf(&b, "\nContenido del archivo:\n\"\"\"\n%s\n\"\"\"\n\nResponde únicamente con el array JSON.", fileContent)
	return b.String()
}

// ExtractWholesaleOrders turns a weekly order sheet into one order per day.
// Days outside the week, or with unreadable dates, are dropped.
func (c *GeminiClient) ExtractWholesaleOrders(ctx context.Context, fileContent string, skuNames []string, storeName string, weekStart generic.Date) ([]bakery.WholesaleOrder, error) {
	req := request{
		Contents: []content{{Role: "user", Parts: []part{{Text: ordersPrompt(fileContent, skuNames, storeName, weekStart)}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   ordersSchema,
			Temperature:      0.1,
		},
	}

	var orders []bakery.WholesaleOrder
	if err := c.generate(ctx, req, &orders); err != nil {
		return nil, err
	}

	weekEnd := weekStart.AddDays(6)
	out := orders[:0]
	for _, o := range orders {
		if o.Date.IsZero() || o.Date.Before(weekStart) || o.Date.After(weekEnd) {
			c.log.Warn().Str("store", storeName).Str("date", o.Date.String()).Msg("dropping order outside the week")
			continue
		}
		o.StoreName = storeName
		out = append(out, o)
	}
	return out, nil
}
