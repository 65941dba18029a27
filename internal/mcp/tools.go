package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/duelcore/internal/game"
)

// RegisterTools adds all game tools to the MCP server.
func RegisterTools(s *server.MCPServer, sess *Session) {
	s.AddTool(startMatchTool(), sess.handleStartMatch)
	s.AddTool(getStateTool(), sess.handleGetState)
	s.AddTool(legalActionsTool(), sess.handleLegalActions)
	s.AddTool(takeActionTool(), sess.handleTakeAction)
	s.AddTool(respondTriggerTool(), sess.handleRespondTrigger)
	s.AddTool(passPriorityTool(), sess.handlePassPriority)
	s.AddTool(runAITurnTool(), sess.handleRunAITurn)
}

// --- Tool definitions ---

func startMatchTool() mcp.Tool {
	return mcp.NewTool("start_match",
		mcp.WithDescription("Start a new duel against a computer opponent. Returns the opening state, events and the first pending decision."),
		mcp.WithNumber("deck", mcp.Description("Your deck number (1-indexed from decks.yaml). Defaults to 1.")),
		mcp.WithNumber("opponent_deck", mcp.Description("The computer's deck number. Defaults to your deck.")),
		mcp.WithString("difficulty", mcp.Description("Computer difficulty: easy, medium, hard or boss. Defaults to medium.")),
		mcp.WithBoolean("go_first", mcp.Description("true to take the first turn. Defaults to true.")),
		mcp.WithNumber("seed", mcp.Description("Shuffle seed; 0 picks one from the clock.")),
	)
}

func getStateTool() mcp.Tool {
	return mcp.NewTool("get_state",
		mcp.WithDescription("Get the current state, events since the last call, your legal actions and the pending decision. Read-only."),
	)
}

func legalActionsTool() mcp.Tool {
	return mcp.NewTool("legal_actions",
		mcp.WithDescription("List the actions you may take right now, numbered for take_action."),
	)
}

func takeActionTool() mcp.Tool {
	return mcp.NewTool("take_action",
		mcp.WithDescription("Take one action from your legal action list."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("0-based index into the actions list")),
		mcp.WithNumber("seq", mcp.Description("state.seq the list was read from; the call fails if the match moved on. 0 skips the check.")),
	)
}

func respondTriggerTool() mcp.Tool {
	return mcp.NewTool("respond_trigger",
		mcp.WithDescription("Activate or skip one of your optional triggers. Use this when the pending decision type is 'optional_trigger'."),
		mcp.WithString("card_id", mcp.Required(), mcp.Description("Instance id of the card whose trigger is pending")),
		mcp.WithBoolean("accept", mcp.Required(), mcp.Description("true to activate, false to skip")),
	)
}

func passPriorityTool() mcp.Tool {
	return mcp.NewTool("pass_priority",
		mcp.WithDescription("Pass in the open response window. Use this when the pending decision type is 'response'."),
	)
}

func runAITurnTool() mcp.Tool {
	return mcp.NewTool("run_ai_turn",
		mcp.WithDescription("Let the computer play its turn. Stops early when you have to decide something. Use this when the pending decision type is 'computer_turn'."),
	)
}

// --- Tool handlers ---

func (s *Session) handleStartMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := StartOptions{
		Deck:         request.GetInt("deck", 1),
		OpponentDeck: request.GetInt("opponent_deck", 0),
		GoFirst:      request.GetBool("go_first", true),
		Seed:         uint64(request.GetInt("seed", 0)),
	}
	if opts.Deck < 1 {
		return mcp.NewToolResultError("deck must be >= 1"), nil
	}
	if d := request.GetString("difficulty", ""); d != "" {
		difficulty, err := game.ParseDifficulty(d)
		if err != nil {
			return mcp.NewToolResultErrorf("Invalid difficulty: %v", err), nil
		}
		opts.Difficulty = difficulty
	}
	return result(s.Start(ctx, opts))
}

func (s *Session) handleGetState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.State(ctx))
}

func (s *Session) handleLegalActions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actions, err := s.LegalActions(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(respondJSON(map[string]any{"actions": actions})), nil
}

func (s *Session) handleTakeAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index := request.GetInt("index", -1)
	if index < 0 {
		return mcp.NewToolResultError("index must be >= 0"), nil
	}
	return result(s.Take(ctx, index, request.GetInt("seq", 0)))
}

func (s *Session) handleRespondTrigger(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cardID := request.GetString("card_id", "")
	if cardID == "" {
		return mcp.NewToolResultError("card_id is required"), nil
	}
	return result(s.RespondTrigger(ctx, cardID, request.GetBool("accept", false)))
}

func (s *Session) handlePassPriority(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.Pass(ctx))
}

func (s *Session) handleRunAITurn(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.RunAI(ctx))
}

func result(resp *ToolResponse, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

// toolError reports failures as tool results so the agent can read them.
// Rule violations carry their code.
func toolError(err error) *mcp.CallToolResult {
	var re *game.RuleError
	if errors.As(err, &re) {
		return mcp.NewToolResultErrorf("Illegal move (%s): %s", re.Code, re.Reason)
	}
	return mcp.NewToolResultErrorf("Error: %v", err)
}
