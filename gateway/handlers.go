package gateway

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/luma/sci/client"
	"github.com/luma/sci/protocol"
	"github.com/luma/sci/storage"
)

const contentTypeJSON = "application/json; charset=utf-8"

type handlers struct {
	store  storage.Store
	device Device
	log    *zap.Logger
}

func (h *handlers) register(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/parameters/:name", h.getParameter)
	r.PUT("/parameters/:name", h.setParameter)
	r.POST("/functions/:name", h.invoke)
	r.POST("/functions/:name/upstream", h.upstream)
}

func (h *handlers) getParameter(c *gin.Context) {
	ctx := c.Request.Context()

	p, err := h.store.Parameter(ctx, c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}

	v, err := h.device.GetValue(ctx, p)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.reply(c, "value", v.Interface())
}

func (h *handlers) setParameter(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := readBody(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	p, err := h.store.Parameter(ctx, c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}

	field := gjson.GetBytes(body, "value")
	if !field.Exists() {
		h.fail(c, invalid(fmt.Errorf("Failed to set parameter, body has no value: %w", protocol.ErrFormat)))
		return
	}

	v, err := jsonValue(field)
	if err != nil {
		h.fail(c, invalid(err))
		return
	}

	if err := h.device.SetValue(ctx, p, v); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlers) invoke(c *gin.Context) {
	ctx := c.Request.Context()

	fn, args, ok := h.function(ctx, c)
	if !ok {
		return
	}

	values, err := h.device.Invoke(ctx, fn, args...)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v.Interface())
	}

	h.reply(c, "values", out)
}

func (h *handlers) upstream(c *gin.Context) {
	ctx := c.Request.Context()

	fn, args, ok := h.function(ctx, c)
	if !ok {
		return
	}

	data, err := h.device.RequestUpstream(ctx, fn, args...)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.reply(c, "data", hex.EncodeToString(data))
}

// function resolves the named function and the args of the request body. It
// writes the failure response itself when ok is false.
func (h *handlers) function(ctx context.Context, c *gin.Context) (fn protocol.Function, args []protocol.Value, ok bool) {
	body, err := readBody(c)
	if err != nil {
		h.fail(c, err)
		return fn, nil, false
	}

	if fn, err = h.store.Function(ctx, c.Param("name")); err != nil {
		h.fail(c, err)
		return fn, nil, false
	}

	field := gjson.GetBytes(body, "args")
	if field.Exists() && !field.IsArray() {
		h.fail(c, invalid(fmt.Errorf("Failed to read args, not a list: %w", protocol.ErrFormat)))
		return fn, nil, false
	}

	for _, item := range field.Array() {
		v, err := jsonValue(item)
		if err != nil {
			h.fail(c, invalid(err))
			return fn, nil, false
		}

		args = append(args, v)
	}

	return fn, args, true
}

func (h *handlers) reply(c *gin.Context, key string, value interface{}) {
	body, err := sjson.SetBytes([]byte(`{}`), key, value)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Data(http.StatusOK, contentTypeJSON, body)
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := statusOf(err)

	if status >= http.StatusInternalServerError {
		h.log.Warn("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}

	body, _ := sjson.SetBytes([]byte(`{}`), "error", err.Error())
	c.Data(status, contentTypeJSON, body)
}

func statusOf(err error) int {
	var (
		deviceErr *client.DeviceError
		badInput  *inputError
	)

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound

	case errors.As(err, &badInput):
		return http.StatusBadRequest

	case errors.Is(err, client.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, protocol.ErrConfig),
		errors.Is(err, protocol.ErrSizeExceeded),
		errors.Is(err, protocol.ErrUnknownDatatype):
		return http.StatusBadRequest

	case errors.As(err, &deviceErr),
		errors.Is(err, client.ErrDeviceRejected),
		errors.Is(err, client.ErrNoUpstream),
		errors.Is(err, client.ErrUnexpectedDesignator),
		errors.Is(err, client.ErrNoProgress),
		errors.Is(err, client.ErrTooManyValues),
		errors.Is(err, protocol.ErrFrame),
		errors.Is(err, protocol.ErrFormat):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := ioutil.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("Failed to read request body: %w", err)
	}

	if len(body) > 0 && !gjson.ValidBytes(body) {
		return nil, invalid(fmt.Errorf("Failed to read request body, invalid JSON: %w", protocol.ErrFormat))
	}

	return body, nil
}

// jsonValue reads a JSON number, or a string holding a number such as
// "0x1E", into a Value.
func jsonValue(field gjson.Result) (protocol.Value, error) {
	switch field.Type {
	case gjson.Number:
		return protocol.ParseValue(field.Raw)
	case gjson.String:
		return protocol.ParseValue(field.Str)
	default:
		return protocol.Value{}, fmt.Errorf("Failed to read value %s, not a number: %w", field.Raw, protocol.ErrFormat)
	}
}

// inputError marks a failure caused by the request rather than the device.
type inputError struct {
	err error
}

func invalid(err error) error {
	return &inputError{err: err}
}

func (e *inputError) Error() string {
	return e.err.Error()
}

func (e *inputError) Unwrap() error {
	return e.err
}
