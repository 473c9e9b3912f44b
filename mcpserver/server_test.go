package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/deepnoodle-ai/skillet/slogger"
)

func newRegistry(t *testing.T) *skillet.Registry {
	t.Helper()
	reg := skillet.NewRegistry(skillet.RegistryOptions{Logger: slogger.NewDevNullLogger()})
	require.NoError(t, reg.Load(context.Background()))
	return reg
}

func newRunner(reg *skillet.Registry) *skillet.Runner {
	oracle := &skillet.MockOracle{
		YesNo: func(ctx context.Context, prompt string) (string, error) {
			if strings.Contains(prompt, "Tool: square_root\n") {
				return "yes", nil
			}
			return "no", nil
		},
		Extract: func(ctx context.Context, prompt string) (string, error) {
			return "81", nil
		},
	}
	return skillet.NewRunner(skillet.RunnerOptions{
		Registry: reg,
		Selector: skillet.NewSelector(skillet.SelectorOptions{Oracle: oracle}),
		Logger:   slogger.NewDevNullLogger(),
	})
}

func connect(t *testing.T, s *Server) *client.Client {
	t.Helper()
	ctx := context.Background()
	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Start(ctx))
	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: "skillet-test", Version: "0.0.0"},
		},
	})
	require.NoError(t, err)
	return c
}

func listTools(t *testing.T, c *client.Client) map[string]mcp.Tool {
	t.Helper()
	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)
	tools := map[string]mcp.Tool{}
	for _, tool := range res.Tools {
		tools[tool.Name] = tool
	}
	return tools
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := c.CallTool(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	var texts []string
	for _, content := range res.Content {
		switch v := content.(type) {
		case mcp.TextContent:
			texts = append(texts, v.Text)
		case *mcp.TextContent:
			texts = append(texts, v.Text)
		}
	}
	return strings.Join(texts, "\n"), res.IsError
}

func TestListTools(t *testing.T) {
	reg := newRegistry(t)
	s := New(Options{Registry: reg, Runner: newRunner(reg), Logger: slogger.NewDevNullLogger()})
	c := connect(t, s)

	tools := listTools(t, c)
	require.Len(t, tools, reg.Len()+1)
	require.Contains(t, tools, RunTurnTool)

	sqrt := tools["square_root"]
	require.Equal(t, skill.Builtins()[5].Description, sqrt.Description)
	require.Contains(t, sqrt.InputSchema.Properties, "number")
	require.Equal(t, []string{"number"}, sqrt.InputSchema.Required)
	prop, ok := sqrt.InputSchema.Properties["number"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "number", prop["type"])

	weather := tools["getWeather"]
	require.Contains(t, weather.InputSchema.Properties, "location")
	require.Empty(t, weather.InputSchema.Required)
}

func TestNoRunTurnWithoutRunner(t *testing.T) {
	reg := newRegistry(t)
	s := New(Options{Registry: reg, Logger: slogger.NewDevNullLogger()})
	tools := listTools(t, connect(t, s))
	require.NotContains(t, tools, RunTurnTool)
	require.Len(t, tools, reg.Len())
}

func TestCallSkillTool(t *testing.T) {
	reg := newRegistry(t)
	c := connect(t, New(Options{Registry: reg, Logger: slogger.NewDevNullLogger()}))

	text, isErr := callTool(t, c, "square_root", map[string]any{"number": 16})
	require.False(t, isErr)
	require.Contains(t, text, "[Square Root] Result: 4")

	text, isErr = callTool(t, c, "fear", nil)
	require.False(t, isErr)
	require.Contains(t, text, "[fear response]")

	sk, ok := reg.Get("square_root")
	require.True(t, ok)
	require.Equal(t, 1, sk.ExecutionCount)
}

func TestCallRunTurn(t *testing.T) {
	reg := newRegistry(t)
	c := connect(t, New(Options{Registry: reg, Runner: newRunner(reg), Logger: slogger.NewDevNullLogger()}))

	text, isErr := callTool(t, c, RunTurnTool, map[string]any{"utterance": "what is the square root of 81?"})
	require.False(t, isErr)
	require.True(t, strings.HasPrefix(text, "Selected: square_root\n"))
	require.Contains(t, text, "[Square Root] Result: 9")

	_, isErr = callTool(t, c, RunTurnTool, map[string]any{})
	require.True(t, isErr)
}

func TestSyncFollowsRegistry(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	s := New(Options{Registry: reg, Logger: slogger.NewDevNullLogger()})
	c := connect(t, s)
	before := reg.Len()

	greet := skill.New("greet", "Use when the user wants a greeting", "func execute(who) {\n    log(\"hi \" + who)\n}\n")
	greet.Parameters["who"] = skill.Parameter{Type: skill.TypeString, Required: true, Description: "Who"}
	require.NoError(t, reg.Register(ctx, greet))
	require.Equal(t, before+1, s.Sync())

	tools := listTools(t, c)
	require.Contains(t, tools, "greet")
	text, isErr := callTool(t, c, "greet", map[string]any{"who": "Ada"})
	require.False(t, isErr)
	require.Equal(t, "hi Ada", text)

	require.NoError(t, reg.Remove(ctx, "greet"))
	require.Equal(t, before, s.Sync())
	require.NotContains(t, listTools(t, c), "greet")
}

func TestStaleToolReportsError(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	s := New(Options{Registry: reg, Logger: slogger.NewDevNullLogger()})

	greet := skill.New("greet", "Use when the user wants a greeting", "func execute() {\n    log(\"hi\")\n}\n")
	require.NoError(t, reg.Register(ctx, greet))
	s.Sync()
	c := connect(t, s)
	require.NoError(t, reg.Remove(ctx, "greet"))

	text, isErr := callTool(t, c, "greet", nil)
	require.True(t, isErr)
	require.Contains(t, text, "no longer registered")
}

func TestSignature(t *testing.T) {
	a := skill.New("a", "desc", "func execute() {}")
	b := a.Clone()
	require.Equal(t, signature(a), signature(b))

	b.RecordExecution(true, 0)
	require.Equal(t, signature(a), signature(b))

	b.Parameters["x"] = skill.Parameter{Type: skill.TypeNumber}
	require.NotEqual(t, signature(a), signature(b))
}
