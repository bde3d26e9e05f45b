// Package attachment validates user-selected files and encodes them into
// inline data URLs ready to be sent with the next message.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/failure"
	"github.com/longkey1/llmchat/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

const (
	DefaultMaxFiles = 10
	DefaultMaxBytes = 10 * 1024 * 1024
)

// DefaultAllowedPrefixes accepts any image type.
var DefaultAllowedPrefixes = []string{"image/"}

// FileHandle is a file selected by the user.
type FileHandle interface {
	Name() string
	Size() int64
	MimeType() string
	Open() (io.ReadCloser, error)
}

// Observer is notified when the staging set changes.
type Observer interface {
	ThumbnailAdded(att llmc.Attachment)
	ThumbnailRemoved(id string)
}

// Limits bounds what may be staged.
type Limits struct {
	MaxFiles        int
	MaxBytes        int64
	AllowedPrefixes []string
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxFiles:        DefaultMaxFiles,
		MaxBytes:        DefaultMaxBytes,
		AllowedPrefixes: append([]string(nil), DefaultAllowedPrefixes...),
	}
}

// Rejection explains why a file was not staged.
type Rejection struct {
	Name string
	Err  *failure.Error
}

// Result is the outcome of staging one batch.
type Result struct {
	Accepted []llmc.Attachment
	Rejected []Rejection
}

// Pipeline holds the pending staging set.
type Pipeline struct {
	limits   Limits
	observer Observer
	log      logrus.FieldLogger

	mu      sync.Mutex
	pending []llmc.Attachment
}

// NewPipeline creates a pipeline. A nil observer or logger is allowed.
func NewPipeline(limits Limits, observer Observer, log logrus.FieldLogger) *Pipeline {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = DefaultMaxFiles
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultMaxBytes
	}
	if len(limits.AllowedPrefixes) == 0 {
		limits.AllowedPrefixes = append([]string(nil), DefaultAllowedPrefixes...)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		limits:   limits,
		observer: observer,
		log:      log,
	}
}

// SetObserver replaces the observer notified of staging changes.
func (p *Pipeline) SetObserver(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = observer
}

// Limits returns the effective limits.
func (p *Pipeline) Limits() Limits {
	return p.limits
}

// Stage validates and encodes files. Oversized batches are rejected as a
// whole; otherwise each file is accepted or rejected on its own and accepted
// files are added to the staging set in input order.
func (p *Pipeline) Stage(ctx context.Context, files []FileHandle) Result {
	var result Result
	if len(files) == 0 {
		return result
	}

	if len(files) > p.limits.MaxFiles {
		err := failure.New(failure.TooManyFiles,
			fmt.Errorf("%d files selected, maximum is %d", len(files), p.limits.MaxFiles))
		for _, f := range files {
			result.Rejected = append(result.Rejected, Rejection{Name: f.Name(), Err: err})
		}
		p.log.WithField("files", len(files)).Warn("Batch rejected: too many files")
		return result
	}

	type slot struct {
		att llmc.Attachment
		err *failure.Error
	}
	slots := make([]slot, len(files))

	var wg conc.WaitGroup
	for i, f := range files {
		if err := p.validate(f); err != nil {
			slots[i].err = err
			continue
		}
		i, f := i, f
		wg.Go(func() {
			att, err := p.read(ctx, f)
			slots[i] = slot{att: att, err: err}
		})
	}
	wg.Wait()

	for i, s := range slots {
		if s.err != nil {
			result.Rejected = append(result.Rejected, Rejection{Name: files[i].Name(), Err: s.err})
			p.log.WithFields(logrus.Fields{
				"attachment": files[i].Name(),
				"reason":     s.err.Kind,
			}).Warn("Attachment rejected")
			continue
		}
		result.Accepted = append(result.Accepted, s.att)
	}

	p.mu.Lock()
	p.pending = append(p.pending, result.Accepted...)
	observer := p.observer
	p.mu.Unlock()

	for _, att := range result.Accepted {
		p.log.WithFields(logrus.Fields{
			"attachment": att.Name,
			"id":         att.ID,
			"size":       att.SizeBytes,
		}).Debug("Attachment staged")
		if observer != nil {
			observer.ThumbnailAdded(att)
		}
	}

	return result
}

// Unstage removes one pending attachment. It reports whether id was staged.
func (p *Pipeline) Unstage(id string) bool {
	p.mu.Lock()
	index := -1
	for i, att := range p.pending {
		if att.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		p.mu.Unlock()
		return false
	}
	p.pending = append(p.pending[:index], p.pending[index+1:]...)
	observer := p.observer
	p.mu.Unlock()

	if observer != nil {
		observer.ThumbnailRemoved(id)
	}
	return true
}

// Pending returns a copy of the staging set in staging order.
func (p *Pipeline) Pending() []llmc.Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llmc.Attachment, len(p.pending))
	copy(out, p.pending)
	return out
}

// Clear empties the staging set.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	removed := p.pending
	p.pending = nil
	observer := p.observer
	p.mu.Unlock()

	if observer == nil {
		return
	}
	for _, att := range removed {
		observer.ThumbnailRemoved(att.ID)
	}
}

func (p *Pipeline) validate(f FileHandle) *failure.Error {
	if f.Size() > p.limits.MaxBytes {
		return failure.New(failure.TooLarge,
			fmt.Errorf("file %q is %d bytes, maximum is %d", f.Name(), f.Size(), p.limits.MaxBytes))
	}
	if !p.allowed(f.MimeType()) {
		return failure.New(failure.UnsupportedType,
			fmt.Errorf("file %q has unsupported type %q", f.Name(), f.MimeType()))
	}
	return nil
}

func (p *Pipeline) allowed(mimeType string) bool {
	for _, prefix := range p.limits.AllowedPrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// read loads and encodes one file. The size is enforced again while reading
// because a file can grow between selection and read.
func (p *Pipeline) read(ctx context.Context, f FileHandle) (llmc.Attachment, *failure.Error) {
	readErr := func(err error) *failure.Error {
		return failure.New(failure.AttachmentReadFailed,
			fmt.Errorf("%w: %q: %v", failure.ErrAttachmentRead, f.Name(), err))
	}

	if err := ctx.Err(); err != nil {
		return llmc.Attachment{}, readErr(err)
	}

	rc, err := f.Open()
	if err != nil {
		return llmc.Attachment{}, readErr(err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(contextReader{ctx: ctx, r: rc}, p.limits.MaxBytes+1))
	if err != nil {
		return llmc.Attachment{}, readErr(err)
	}
	if n > p.limits.MaxBytes {
		return llmc.Attachment{}, failure.New(failure.TooLarge,
			fmt.Errorf("file %q exceeds %d bytes", f.Name(), p.limits.MaxBytes))
	}

	return llmc.Attachment{
		ID:          uuid.NewString(),
		Name:        f.Name(),
		MimeType:    f.MimeType(),
		SizeBytes:   n,
		EncodedData: EncodeDataURL(f.MimeType(), buf.Bytes()),
	}, nil
}

// EncodeDataURL returns the inline, self-describing form of data.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a data URL produced by EncodeDataURL.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL has no payload")
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URL: %w", err)
	}
	return mimeType, data, nil
}

// contextReader aborts reads once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
