// Package tools is the tenant-isolated tool boundary. Every side effect and
// every domain lookup made by a journey goes through Invoker.Execute, which
// returns a model.ToolResponse and never an error.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/handoff"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/metrics"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Call is a validated invocation handed to a tool handler.
type Call struct {
	TenantID       string
	RequestID      string
	ConversationID string
	Args           map[string]any
}

// Bind decodes the call arguments into out using json field names.
func (c Call) Bind(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(c.Args); err != nil {
		return errx.Validation(model.CodeInvalidParams, err.Error())
	}
	return nil
}

// Handler performs the tool's work. The returned value is converted to the
// response data map through its JSON form.
type Handler func(ctx context.Context, c Call) (any, error)

// Spec describes one registered tool.
type Spec struct {
	Name   string
	Desc   string
	Domain string
	Params map[string]*schema.ParameterInfo
	Run    Handler
}

func (s Spec) info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        s.Name,
		Desc:        s.Desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(s.Params),
	}
}

// Invoker is the tool registry. It is built once and read-only afterwards.
type Invoker struct {
	specs   map[string]Spec
	tenants commerce.TenantDirectory
}

// New registers the commerce, knowledge, governance and handoff tools.
func New(backend commerce.Backend, tenants commerce.TenantDirectory, publisher handoff.Publisher) *Invoker {
	inv := &Invoker{specs: map[string]Spec{}, tenants: tenants}
	for _, s := range catalogSpecs(backend.Catalog) {
		inv.register(s)
	}
	for _, s := range orderSpecs(backend) {
		inv.register(s)
	}
	for _, s := range supportSpecs(backend, publisher) {
		inv.register(s)
	}
	return inv
}

func (i *Invoker) register(s Spec) {
	if _, dup := i.specs[s.Name]; dup {
		panic(fmt.Sprintf("tool %q registered twice", s.Name))
	}
	i.specs[s.Name] = s
}

// ToolInfos returns the registered tools sorted by name, for model binding.
func (i *Invoker) ToolInfos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(i.specs))
	for _, s := range i.specs {
		out = append(out, s.info())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Execute validates and dispatches one tool call.
func (i *Invoker) Execute(ctx context.Context, name string, args map[string]any) model.ToolResponse {
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{Name: name, Type: "Invoker", Component: components.ComponentOfTool})
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: argumentsJSON(args)})

	resp := i.execute(ctx, name, args)

	code := resp.ErrorCode
	if resp.Success {
		code = "OK"
		callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: responseJSON(resp)})
	} else {
		callbacks.OnError(ctx, fmt.Errorf("%s: %s", resp.ErrorCode, resp.Error))
	}
	metrics.ToolCallsTotal.WithLabelValues(name, code).Inc()
	return resp
}

func (i *Invoker) execute(ctx context.Context, name string, args map[string]any) model.ToolResponse {
	spec, ok := i.specs[name]
	if !ok {
		return model.ToolFail(model.CodeUnknownTool, fmt.Sprintf("unknown tool %q", name))
	}

	call := Call{Args: args}
	ids := []struct {
		key string
		dst *string
	}{
		{model.ArgTenantID, &call.TenantID},
		{model.ArgRequestID, &call.RequestID},
		{model.ArgConversationID, &call.ConversationID},
	}
	for _, id := range ids {
		v, _ := args[id.key].(string)
		if strings.TrimSpace(v) == "" {
			return model.ToolFail(model.CodeMissingParams, id.key+" is required")
		}
		*id.dst = v
	}
	for _, id := range ids {
		if _, err := uuid.Parse(*id.dst); err != nil {
			return model.ToolFail(model.CodeInvalidUUID, id.key+" is not a valid uuid")
		}
	}

	if _, err := i.tenants.Resolve(ctx, call.TenantID); err != nil {
		if errx.KindOf(err) == errx.KindUpstream {
			return model.ToolFail("TENANT_ERROR", "tenant directory unavailable")
		}
		return model.ToolFail(model.CodeInvalidTenant, "tenant is unknown or inactive")
	}

	if resp, ok := checkParams(spec.Params, args); !ok {
		return resp
	}

	log := logx.Turn(call.TenantID, call.ConversationID, call.RequestID)
	data, err := dispatch(ctx, spec, call)
	if err != nil {
		resp := mapError(spec.Domain, err)
		log.Warn().Str("tool", name).Str("code", resp.ErrorCode).Err(err).Msg("Tool call failed")
		return resp
	}
	log.Debug().Str("tool", name).Msg("Tool call succeeded")
	return model.ToolOK(data)
}

func dispatch(ctx context.Context, spec Spec, call Call) (data map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("tool %s panicked: %v", spec.Name, r)
		}
	}()
	out, err := spec.Run(ctx, call)
	if err != nil {
		return nil, err
	}
	return toData(out)
}

// mapError translates a domain error into a typed tool failure.
func mapError(domain string, err error) model.ToolResponse {
	switch errx.KindOf(err) {
	case errx.KindNotFound, errx.KindTenantIsolation:
		return model.ToolFail(domain+"_NOT_FOUND", err.Error())
	case errx.KindValidation:
		code := errx.CodeOf(err)
		if code == "" {
			code = model.CodeInvalidParams
		}
		return model.ToolFail(code, err.Error())
	default:
		return model.ToolFail(domain+"_ERROR", err.Error())
	}
}

// checkParams rejects unknown or mistyped fields before missing required ones.
func checkParams(params map[string]*schema.ParameterInfo, args map[string]any) (model.ToolResponse, bool) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch k {
		case model.ArgTenantID, model.ArgRequestID, model.ArgConversationID:
			continue
		}
		p, ok := params[k]
		if !ok {
			return model.ToolFail(model.CodeInvalidParams, fmt.Sprintf("unknown field %q", k)), false
		}
		v := args[k]
		if v == nil {
			continue
		}
		if !matchesType(p.Type, v) {
			return model.ToolFail(model.CodeInvalidParams, fmt.Sprintf("field %q must be %s", k, p.Type)), false
		}
		if len(p.Enum) > 0 && !inEnum(p.Enum, v) {
			return model.ToolFail(model.CodeInvalidParams, fmt.Sprintf("field %q must be one of %s", k, strings.Join(p.Enum, ", "))), false
		}
	}

	required := make([]string, 0, len(params))
	for k, p := range params {
		if p.Required {
			required = append(required, k)
		}
	}
	sort.Strings(required)
	for _, k := range required {
		if v, ok := args[k]; !ok || v == nil || v == "" {
			return model.ToolFail(model.CodeMissingParams, k+" is required"), false
		}
	}
	return model.ToolResponse{}, true
}

func matchesType(t schema.DataType, v any) bool {
	rv := reflect.ValueOf(v)
	switch t {
	case schema.String:
		return rv.Kind() == reflect.String
	case schema.Boolean:
		return rv.Kind() == reflect.Bool
	case schema.Number:
		return rv.CanInt() || rv.CanUint() || rv.CanFloat()
	case schema.Integer:
		if rv.CanInt() || rv.CanUint() {
			return true
		}
		return rv.CanFloat() && rv.Float() == math.Trunc(rv.Float())
	case schema.Array:
		return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	case schema.Object:
		return rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct ||
			(rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct)
	}
	return true
}

func inEnum(enum []string, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}

// toData converts a handler result into the wire map through its JSON form.
func toData(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("tool result must be an object: %w", err)
	}
	return out, nil
}

func argumentsJSON(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func responseJSON(r model.ToolResponse) string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(b)
}
