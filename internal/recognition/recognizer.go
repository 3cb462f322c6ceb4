package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/wavcodec"
)

// Recognizer is the external chunk-fed streaming recognizer surface named
// in spec.md §6. Implementations MUST accept chunks at the configured
// sample rate and signed-16-bit mono format, and MUST NOT be called
// concurrently — the pipeline's thread model guarantees single-threaded
// access.
type Recognizer interface {
	// Accept feeds one chunk and reports whether the recognizer's own
	// segmentation logic considers the segment finished.
	Accept(chunk []byte) (segmentEnd bool, err error)
	Partial() string
	CurrentSegmentText() string
	Final() string
	Reset()
}

// batchSTTClient is the minimal surface a batch HTTP transcription backend
// exposes; grounded on pkg/providers/stt/groq.go and deepgram.go, both of
// which expose exactly "submit audio bytes, get text back".
type batchSTTClient interface {
	Transcribe(ctx context.Context, wav []byte, lang string) (string, error)
	Name() string
}

// httpBatchRecognizer adapts a batch HTTP STT client (which has no
// incremental/streaming mode) into the Recognizer interface by buffering
// chunks until the VAD-driven caller tells it a segment ended, then
// submitting the whole buffered segment as one request. This is how C2
// drives an otherwise-batch backend through a streaming-shaped interface.
type httpBatchRecognizer struct {
	client     batchSTTClient
	sampleRate int
	lang       string

	mu      sync.Mutex
	buf     bytes.Buffer
	lastFinal string
}

// NewHTTPBatchRecognizer builds a Recognizer over a batch HTTP STT client.
func NewHTTPBatchRecognizer(client batchSTTClient, sampleRate int, lang string) Recognizer {
	return &httpBatchRecognizer{client: client, sampleRate: sampleRate, lang: lang}
}

// Accept buffers the chunk. This adapter has no intrinsic segmentation
// signal of its own (the backing service is request/response, not
// streaming), so segmentEnd is always false here: finalization for this
// recognizer is driven entirely by the pipeline's VAD silence-timeout
// policy, which calls Final explicitly.
func (h *httpBatchRecognizer) Accept(chunk []byte) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Write(chunk)
	return false, nil
}

// Partial returns empty: a batch backend has no meaningful in-progress
// transcript to show before a submission completes.
func (h *httpBatchRecognizer) Partial() string { return "" }

func (h *httpBatchRecognizer) CurrentSegmentText() string { return h.lastFinal }

// Final submits the buffered segment synchronously and returns the
// resulting transcript, then clears the buffer. A transcription error
// yields an empty final rather than propagating, per spec.md §7's
// "transient I/O ... retry or skip; never kill the worker".
func (h *httpBatchRecognizer) Final() string {
	h.mu.Lock()
	pcm := make([]byte, h.buf.Len())
	copy(pcm, h.buf.Bytes())
	h.buf.Reset()
	h.mu.Unlock()

	if len(pcm) == 0 {
		return ""
	}

	wav := wavcodec.NewBuffer(pcm, h.sampleRate, 1)
	text, err := h.client.Transcribe(context.Background(), wav, h.lang)
	if err != nil {
		h.lastFinal = ""
		return ""
	}
	h.lastFinal = text
	return text
}

func (h *httpBatchRecognizer) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Reset()
	h.lastFinal = ""
}

// NewRecognizerFromConfig selects and constructs a Recognizer for the
// configured STT provider ("groq" or "deepgram", defaulting to groq).
// sampleRate is the system target sample rate (AudioConfig.TargetSampleRate).
func NewRecognizerFromConfig(cfg config.RecognitionConfig, sampleRate int) Recognizer {
	var client batchSTTClient
	switch cfg.STTProvider {
	case "deepgram":
		client = NewDeepgramSTT(cfg.STTAPIKey, sampleRate)
	default:
		client = NewGroqSTT(cfg.STTAPIKey, cfg.STTModel)
	}
	return NewHTTPBatchRecognizer(client, sampleRate, "")
}

// GroqSTT is a batchSTTClient grounded directly on
// pkg/providers/stt/groq.go: multipart POST of a WAV file to Groq's
// whisper-compatible transcription endpoint.
type GroqSTT struct {
	APIKey string
	Model  string
	url    string
}

func NewGroqSTT(apiKey, model string) *GroqSTT {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &GroqSTT{APIKey: apiKey, Model: model, url: "https://api.groq.com/openai/v1/audio/transcriptions"}
}

func (g *GroqSTT) Name() string { return "groq-stt" }

func (g *GroqSTT) Transcribe(ctx context.Context, wav []byte, lang string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", g.Model); err != nil {
		return "", err
	}
	if lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return "", err
		}
	}
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, bytes.NewReader(wav)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("groq stt error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Text, nil
}

// DeepgramSTT is a batchSTTClient grounded directly on
// pkg/providers/stt/deepgram.go: raw-PCM POST with query-string params.
type DeepgramSTT struct {
	APIKey     string
	SampleRate int
	url        string
}

func NewDeepgramSTT(apiKey string, sampleRate int) *DeepgramSTT {
	return &DeepgramSTT{APIKey: apiKey, SampleRate: sampleRate, url: "https://api.deepgram.com/v1/listen"}
}

func (d *DeepgramSTT) Name() string { return "deepgram-stt" }

// Transcribe sends the WAV container's raw PCM payload (Deepgram's
// raw-audio endpoint does not need the WAV header, but accepts it fine as
// the teacher's implementation shows with l16 content-type framing).
func (d *DeepgramSTT) Transcribe(ctx context.Context, wav []byte, lang string) (string, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return "", err
	}
	params := u.Query()
	params.Set("model", "nova-2")
	params.Set("smart_format", "true")
	if lang != "" {
		params.Set("language", lang)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(wav))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+d.APIKey)
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d; channels=1", d.SampleRate))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("deepgram error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return result.Results.Channels[0].Alternatives[0].Transcript, nil
}
