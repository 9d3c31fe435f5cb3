package analyzecommand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
	"github.com/stollenaar/numbercruncher/internal/analysis"
	"github.com/stollenaar/numbercruncher/internal/database"
	"github.com/stollenaar/numbercruncher/internal/frame"
	"github.com/stollenaar/numbercruncher/internal/orders"
	"github.com/stollenaar/numbercruncher/internal/util"
	"github.com/stollenaar/numbercruncher/internal/util/charts"
)

type State stateless.State

var (
	StateAcknowledged State = "Acknowledged"
	StateFetching     State = "Fetching"
	StateTransforming State = "Transforming"
	StateRendering    State = "Rendering"
	StateCompleted    State = "Completed" // Terminal: every artifact sent
	StateAborted      State = "Aborted"   // Terminal: nothing to analyse
	StateFailed       State = "Failed"    // Terminal: error returned to the handler
)

type Trigger stateless.Trigger

var (
	TriggerFetch     Trigger = "Fetch"
	TriggerTransform Trigger = "Transform"
	TriggerRender    Trigger = "Render"
	TriggerComplete  Trigger = "Complete"
	TriggerAbort     Trigger = "Abort"
	TriggerFail      Trigger = "Fail"
)

var ErrNoOrders = errors.New("no webhook messages found")

const (
	channelNotFoundMessage = "❌ Order channel not found"
	noOrdersMessage        = "❌ No webhook messages found."
	completedMessage       = "✅ Analysis complete! (timestamps in %s)"
	errorMessage           = "Error happened while processing the analysis"
)

var decompositionNotice = fmt.Sprintf("⚠️ Need ≥%d days for decomposition.", analysis.MinDecompositionDays)

// Responder posts a status text and/or attachments back to the invoker.
type Responder interface {
	Send(ctx context.Context, content string, files ...*discord.File) error
}

type OrderFetcher interface {
	Fetch(ctx context.Context, channelID snowflake.ID) ([]orders.Order, error)
}

// Store holds the working table of one run.
type Store interface {
	analysis.Counter
	LoadFrame(ctx context.Context, f frame.Frame) error
	Close() error
}

type Renderer interface {
	HourHistogram(result analysis.Result) (charts.Artifact, error)
	WeekdayHistogram(result analysis.Result) (charts.Artifact, error)
	Heatmap(result analysis.Result) (charts.Artifact, error)
	DailyVolume(result analysis.Result) (charts.Artifact, error)
	Decomposition(result analysis.Result) (charts.Artifact, error)
}

// Pipeline runs one analysis: fetch, transform, render and send.
type Pipeline struct {
	Fetcher   OrderFetcher
	Renderer  Renderer
	OpenStore func(ctx context.Context) (Store, error)

	ChannelID snowflake.ID
	Location  *time.Location
	Label     string
}

// DuckDBStore opens a fresh in-memory working table.
func DuckDBStore(debug bool) func(ctx context.Context) (Store, error) {
	return func(ctx context.Context) (Store, error) {
		store, err := database.Open(ctx, debug)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (p *Pipeline) Run(ctx context.Context, responder Responder) error {
	_, err := p.run(ctx, responder)
	return err
}

func (p *Pipeline) run(ctx context.Context, responder Responder) (State, error) {
	runID := uuid.NewString()
	defer util.Elapsed("analysis", slog.String("run", runID))()

	fsm := newLifecycle(runID)
	fail := func(err error) (State, error) {
		if fireErr := fsm.FireCtx(ctx, TriggerFail); fireErr != nil {
			slog.Warn("FSM fire error", slog.String("run", runID), slog.Any("err", fireErr))
		}
		return StateFailed, err
	}
	abort := func(notice string) (State, error) {
		if err := responder.Send(ctx, notice); err != nil {
			return fail(err)
		}
		if err := fsm.FireCtx(ctx, TriggerAbort); err != nil {
			return fail(err)
		}
		return StateAborted, nil
	}

	if err := fsm.FireCtx(ctx, TriggerFetch); err != nil {
		return fail(err)
	}
	found, err := p.fetch(ctx)
	switch {
	case errors.Is(err, orders.ErrChannelNotFound):
		return abort(channelNotFoundMessage)
	case errors.Is(err, ErrNoOrders):
		return abort(noOrdersMessage)
	case err != nil:
		return fail(err)
	}

	if err := fsm.FireCtx(ctx, TriggerTransform); err != nil {
		return fail(err)
	}
	result, err := p.transform(ctx, found)
	if err != nil {
		return fail(err)
	}

	if err := fsm.FireCtx(ctx, TriggerRender); err != nil {
		return fail(err)
	}
	if err := p.render(ctx, result, responder); err != nil {
		return fail(err)
	}

	if err := responder.Send(ctx, fmt.Sprintf(completedMessage, p.Label)); err != nil {
		return fail(err)
	}
	if err := fsm.FireCtx(ctx, TriggerComplete); err != nil {
		return fail(err)
	}
	return StateCompleted, nil
}

func newLifecycle(runID string) *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateAcknowledged)

	fsm.Configure(StateAcknowledged).
		Permit(TriggerFetch, StateFetching).
		Permit(TriggerFail, StateFailed)

	fsm.Configure(StateFetching).
		Permit(TriggerTransform, StateTransforming).
		Permit(TriggerAbort, StateAborted).
		Permit(TriggerFail, StateFailed)

	fsm.Configure(StateTransforming).
		Permit(TriggerRender, StateRendering).
		Permit(TriggerFail, StateFailed)

	fsm.Configure(StateRendering).
		Permit(TriggerComplete, StateCompleted).
		Permit(TriggerFail, StateFailed)

	fsm.OnTransitioned(func(ctx context.Context, t stateless.Transition) {
		slog.Debug("analysis transition",
			slog.String("run", runID),
			slog.Any("from", t.Source),
			slog.Any("to", t.Destination),
		)
	})
	return fsm
}

func (p *Pipeline) fetch(ctx context.Context) ([]orders.Order, error) {
	found, err := p.Fetcher.Fetch(ctx, p.ChannelID)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNoOrders
	}
	return found, nil
}

func (p *Pipeline) transform(ctx context.Context, found []orders.Order) (analysis.Result, error) {
	table := frame.Build(found, p.Location)

	store, err := p.OpenStore(ctx)
	if err != nil {
		return analysis.Result{}, err
	}
	defer store.Close()

	if err := store.LoadFrame(ctx, table); err != nil {
		return analysis.Result{}, err
	}
	return analysis.Aggregate(ctx, store)
}

// render sends every artifact as it is produced. The first failing step
// ends the run.
func (p *Pipeline) render(ctx context.Context, result analysis.Result, responder Responder) error {
	steps := []func(analysis.Result) (charts.Artifact, error){
		p.Renderer.HourHistogram,
		p.Renderer.WeekdayHistogram,
		p.Renderer.Heatmap,
		p.Renderer.DailyVolume,
	}
	for _, step := range steps {
		if err := p.sendArtifact(ctx, step, result, responder); err != nil {
			return err
		}
	}

	if result.Decomposition == nil {
		return responder.Send(ctx, decompositionNotice)
	}
	return p.sendArtifact(ctx, p.Renderer.Decomposition, result, responder)
}

func (p *Pipeline) sendArtifact(ctx context.Context, step func(analysis.Result) (charts.Artifact, error), result analysis.Result, responder Responder) error {
	artifact, err := step(result)
	if err != nil {
		return err
	}
	if err := responder.Send(ctx, "", artifact.File()); err != nil {
		return fmt.Errorf("error sending %s: %w", artifact.Name, err)
	}
	return nil
}
