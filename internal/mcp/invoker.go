package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/todo-chat/internal/gateway"
)

// Invoker is a gateway.ToolInvoker that calls tools through an MCP client
// session. Transport failures are reported as transient; error results from
// the tools are classified by their code prefix.
type Invoker struct {
	session *gomcp.ClientSession
}

// NewInvoker wraps an established client session.
func NewInvoker(session *gomcp.ClientSession) *Invoker {
	return &Invoker{session: session}
}

// Connect dials the task tool server over the given transport and returns an
// Invoker plus the session for lifecycle management.
func Connect(ctx context.Context, transport gomcp.Transport, version string) (*Invoker, *gomcp.ClientSession, error) {
	client := gomcp.NewClient(&gomcp.Implementation{Name: "todo-chat-pipeline", Version: version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to task tool server: %w", err)
	}
	return NewInvoker(session), session, nil
}

// ConnectInProcess wires the given server and a client over in-memory
// transports, so tool calls traverse the real MCP wire format without a
// subprocess. The returned close func tears the session down.
func ConnectInProcess(ctx context.Context, srv *Server, version string) (*Invoker, func(), error) {
	serverTransport, clientTransport := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, serverTransport)
	}()

	inv, session, err := Connect(ctx, clientTransport, version)
	if err != nil {
		return nil, nil, err
	}
	return inv, func() { _ = session.Close() }, nil
}

// Invoke executes one tool call and maps the MCP result onto the gateway's
// error taxonomy.
func (i *Invoker) Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	result, err := i.session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		// Transport-level failure: connection gone, deadline exceeded.
		return nil, gateway.Transient(fmt.Errorf("calling %s: %w", tool, err))
	}

	if result.IsError {
		return nil, classifyErrorResult(tool, resultText(result))
	}

	payload, err := structuredPayload(result)
	if err != nil {
		return nil, gateway.Transient(fmt.Errorf("decoding %s result: %w", tool, err))
	}
	return payload, nil
}

// classifyErrorResult turns a coded error text ("not_found: ...",
// "invalid: ...") into the matching typed error. Unrecognized codes are
// treated as transient so a flaky tool layer is retried rather than
// surfaced as a user mistake.
func classifyErrorResult(tool, text string) error {
	code, detail, found := strings.Cut(text, ": ")
	if !found {
		detail = text
		code = ""
	}
	switch code {
	case codeNotFound:
		return &gateway.NotFoundError{Detail: detail}
	case codeValidation:
		return &gateway.ValidationError{Detail: detail}
	default:
		return gateway.Transient(fmt.Errorf("%s failed: %s", tool, text))
	}
}

// resultText concatenates the text content blocks of a tool result.
func resultText(result *gomcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// structuredPayload normalizes the structured tool output into a generic map.
func structuredPayload(result *gomcp.CallToolResult) (map[string]any, error) {
	if result.StructuredContent == nil {
		return nil, nil
	}
	if m, ok := result.StructuredContent.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(result.StructuredContent)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
