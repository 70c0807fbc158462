package recall

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
)

// Fanout 防御式地调用多个通道：任一通道失败只会让它贡献空序列，不会中断整次推荐。
//
// 结果按 channels 的下标写入固定槽位，合并顺序与通道完成顺序无关，
// 因此并发执行与顺序执行的结果完全一致。
type Fanout struct {
	Timeout       time.Duration // 每个通道的超时时间（0 表示不限制）
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	Sequential    bool          // 顺序执行（调试/对比用）
	Logger        zerolog.Logger
}

// Run 调用所有通道，返回与 channels 一一对应的结果。nil 通道记为 OutcomeSkipped。
func (f *Fanout) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	topK int,
	channels []Channel,
) []ChannelResult {
	results := make([]ChannelResult, len(channels))

	if f.Sequential {
		for i, ch := range channels {
			results[i] = f.invoke(ctx, rctx, topK, ch)
		}
		return results
	}

	var eg errgroup.Group
	if f.MaxConcurrent > 0 {
		eg.SetLimit(f.MaxConcurrent)
	}
	for i, ch := range channels {
		i, ch := i, ch
		eg.Go(func() error {
			results[i] = f.invoke(ctx, rctx, topK, ch)
			return nil
		})
	}
	// invoke 永远不返回错误
	_ = eg.Wait()
	return results
}

type scoreReply struct {
	scores core.ScoreSeries
	err    error
}

// invoke 调用单个通道并把一切失败（错误、超时、panic）吸收为 ChannelResult。
func (f *Fanout) invoke(
	ctx context.Context,
	rctx *core.RecommendContext,
	topK int,
	ch Channel,
) ChannelResult {
	if ch == nil {
		return ChannelResult{Outcome: OutcomeSkipped}
	}

	start := time.Now()
	name := ch.Name()

	callCtx := ctx
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	done := make(chan scoreReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- scoreReply{err: fmt.Errorf("channel %s panicked: %v", name, r)}
			}
		}()
		scores, err := ch.Score(callCtx, rctx, topK)
		done <- scoreReply{scores: scores, err: err}
	}()

	var reply scoreReply
	select {
	case reply = <-done:
	case <-callCtx.Done():
		reply = scoreReply{err: fmt.Errorf("channel %s: %w", name, callCtx.Err())}
	}

	res := ChannelResult{
		Channel:  name,
		Outcome:  classify(reply.scores, reply.err),
		Err:      reply.err,
		Duration: time.Since(start),
	}
	if res.Outcome == OutcomeOK {
		res.Scores = reply.scores
	}

	switch res.Outcome {
	case OutcomeError:
		f.Logger.Warn().Str("channel", name).Err(reply.err).Msg("channel failed, contributing empty scores")
	case OutcomeUnavailable:
		f.Logger.Debug().Str("channel", name).Err(reply.err).Msg("channel not applicable")
	}
	return res
}
