package reasoner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
)

// oneToolPerStep is the observation for tool calls beyond the first in a
// single model response.
const oneToolPerStep = "Error: only one tool call is executed per step; repeat this call in a later step if still needed"

// fallbackAnswer is used when the model replies with no text.
const fallbackAnswer = "I've updated the task graph."

// ModelReasonerOptions configures a ModelReasoner.
type ModelReasonerOptions struct {
	// MaxIters bounds tool steps per turn (default DefaultMaxIters).
	MaxIters int
	// Instructions is the system prompt template (default DefaultInstructions).
	Instructions string
	Logger       logging.Logger
}

// ModelReasoner is a ReAct loop over a model.Model: each step asks the model
// for the next tool call with the current graph in the system prompt, hands
// that call to the handler and feeds the observation back.
type ModelReasoner struct {
	model model.Model
	opts  ModelReasonerOptions
}

// NewModelReasoner creates a reasoner backed by m.
func NewModelReasoner(m model.Model, optFns ...func(o *ModelReasonerOptions)) *ModelReasoner {
	opts := ModelReasonerOptions{
		MaxIters:     DefaultMaxIters,
		Instructions: DefaultInstructions,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &ModelReasoner{model: m, opts: opts}
}

// Reason implements Reasoner.
func (r *ModelReasoner) Reason(ctx context.Context, in Input, handle Handler) error {
	contents := core.Contents(in.History)
	if len(contents) == 0 {
		return errors.New("empty conversation history")
	}

	limiter := core.NewStepLimiter(r.opts.MaxIters)

	for {
		if err := limiter.Increment(); err != nil {
			r.opts.Logger.Info("reasoner.budget.exhausted", "max_iters", r.opts.MaxIters)
			break
		}

		instructions, err := r.instructions(in.State)
		if err != nil {
			return err
		}

		resp, err := r.generate(ctx, model.Request{Instructions: instructions, Contents: contents, Tools: in.Tools})
		if err != nil {
			return fmt.Errorf("reasoning step %d: %w", limiter.Count(), err)
		}

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			handle(ctx, FinalAnswer(answerText(resp.Content)))
			return nil
		}

		call := calls[0]
		if thought := formatThought(resp.Content.Text(), &call); thought != "" {
			handle(ctx, Thought(thought))
		}

		obs := handle(ctx, Step{Kind: StepToolCall, Call: &call})

		results := []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: obs.Text(),
		}}}
		for _, extra := range calls[1:] {
			r.opts.Logger.Warn("reasoner.tool_call.skipped", "tool", extra.Name, "reason", "one tool per step")
			results = append(results, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
				ID:    extra.ID,
				Name:  extra.Name,
				Error: oneToolPerStep,
			}})
		}

		contents = append(contents, resp.Content, core.Content{Role: core.RoleTool, Parts: results})

		if obs.Finished {
			break
		}
	}

	return r.finalAnswer(ctx, in, contents, handle)
}

func (r *ModelReasoner) finalAnswer(ctx context.Context, in Input, contents []core.Content, handle Handler) error {
	instructions, err := r.instructions(in.State)
	if err != nil {
		return err
	}

	// tools stay declared: some providers reject tool history without them
	resp, err := r.generate(ctx, model.Request{
		Instructions: instructions + finalAnswerInstructions,
		Contents:     contents,
		Tools:        in.Tools,
	})
	if err != nil {
		return fmt.Errorf("final answer: %w", err)
	}

	handle(ctx, FinalAnswer(answerText(resp.Content)))

	return nil
}

// answerText extracts the reply from c, falling back to fallbackAnswer so a
// turn never ends without a visible reply.
func answerText(c core.Content) string {
	if answer := extractResponse(c.Text()); answer != "" {
		return answer
	}
	return fallbackAnswer
}

func (r *ModelReasoner) instructions(state func() graph.Data) (string, error) {
	var data graph.Data
	if state != nil {
		data = state()
	}
	data.Normalize()

	out, err := util.RenderTemplate(r.opts.Instructions, map[string]any{
		"Graph":    data,
		"MaxIters": r.opts.MaxIters,
	})
	if err != nil {
		return "", fmt.Errorf("render instructions: %w", err)
	}
	return out, nil
}

func (r *ModelReasoner) generate(ctx context.Context, req model.Request) (model.Response, error) {
	start := time.Now()
	resp, err := model.Collect(ctx, r.model, req)
	logging.LogLLMCall(r.opts.Logger, r.model.Info().Name, time.Since(start), err == nil, err)
	return resp, err
}
