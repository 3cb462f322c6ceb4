// Package expression implements C4, the Expression Controller: it
// translates annotated text and animation tags into robot speech+motion
// calls and tracks speaking state.
//
// Grounded on pkg/orchestrator/managed_stream.go's context-cancellable
// speech-task pattern, generalized from streaming TTS playback to a
// synchronous robot speech RPC wrapped in a cancellable background task.
package expression

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// RPC is the narrow robot speech/animation RPC surface this controller
// drives; the real binding is out of scope per spec.md §1.
type RPC interface {
	Say(ctx context.Context, annotatedText string) error
	PlayLocalAnimation(ctx context.Context, path string) error
	PlayStandardTag(ctx context.Context, tag string) error
	StopAllSpeech(ctx context.Context) error
}

// Controller is C4.
type Controller struct {
	rpc       RPC
	baseDir   string
	catalogue map[string][]string // category -> animation file paths

	mu       sync.Mutex
	speaking bool
	taskSeq  uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	animDisabled   bool
	standardTagsOK bool
}

// New constructs a Controller and scans baseDir for the local-animation
// catalogue: one subdirectory per category, containing ".qianim" files.
func New(rpc RPC, baseDir string) *Controller {
	c := &Controller{rpc: rpc, baseDir: baseDir, standardTagsOK: true}
	cat, err := scanCatalogue(baseDir)
	if err != nil {
		c.animDisabled = true
	} else {
		c.catalogue = cat
	}
	return c
}

func scanCatalogue(baseDir string) (map[string][]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, err
	}
	cat := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		category := e.Name()
		files, err := os.ReadDir(filepath.Join(baseDir, category))
		if err != nil {
			continue
		}
		for _, f := range files {
			if strings.HasSuffix(f.Name(), ".qianim") {
				cat[category] = append(cat[category], filepath.Join(baseDir, category, f.Name()))
			}
		}
	}
	return cat, nil
}

// Say speaks annotated_text. If wait is false the call runs on a
// cancellable background task and Say returns immediately.
func (c *Controller) Say(ctx context.Context, annotatedText string, wait bool) error {
	return c.runSpeechTask(ctx, wait, func(taskCtx context.Context) error {
		return c.rpc.Say(taskCtx, annotatedText)
	})
}

// PlayLocalAnimation plays a catalogued .qianim file. name=="" picks
// uniformly at random from the category.
func (c *Controller) PlayLocalAnimation(ctx context.Context, category, name string, wait bool) error {
	if c.animDisabled {
		return fmt.Errorf("expression: %w: local animation service disabled", umebot.ErrAnimationNotFound)
	}
	files := c.catalogue[category]
	if len(files) == 0 {
		return fmt.Errorf("expression: %w: no local animation in category %q", umebot.ErrAnimationNotFound, category)
	}

	var path string
	if name == "" {
		path = files[rand.Intn(len(files))]
	} else {
		for _, f := range files {
			if strings.Contains(f, name) {
				path = f
				break
			}
		}
		if path == "" {
			return fmt.Errorf("expression: %w: %q not found in category %q", umebot.ErrAnimationNotFound, name, category)
		}
	}

	return c.runSpeechTask(ctx, wait, func(taskCtx context.Context) error {
		return c.rpc.PlayLocalAnimation(taskCtx, path)
	})
}

// PlayStandardTag plays a built-in animation-player tag.
func (c *Controller) PlayStandardTag(ctx context.Context, tag string, wait bool) error {
	if !c.standardTagsOK {
		return fmt.Errorf("expression: animation player service disabled")
	}
	return c.runSpeechTask(ctx, wait, func(taskCtx context.Context) error {
		return c.rpc.PlayStandardTag(taskCtx, tag)
	})
}

// IsSpeaking reports whether the outstanding speech task is still running.
func (c *Controller) IsSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// StopAll cancels the outstanding speech task and issues the robot's
// stop-all-speech call.
func (c *Controller) StopAll(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
	if err := c.rpc.StopAllSpeech(ctx); err != nil {
		// Degrade quietly: stop-all is itself best-effort cleanup.
		_ = err
	}
}

func (c *Controller) runSpeechTask(ctx context.Context, wait bool, fn func(context.Context) error) error {
	taskCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.speaking = true
	c.taskSeq++
	seq := c.taskSeq
	c.mu.Unlock()

	done := make(chan error, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		err := fn(taskCtx)
		c.mu.Lock()
		// A superseded task must not clear the flag of the task that replaced it.
		if c.taskSeq == seq {
			c.speaking = false
		}
		c.mu.Unlock()
		done <- err
	}()

	if !wait {
		return nil
	}
	return <-done
}
