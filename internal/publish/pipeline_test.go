package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/mastodon"
	"github.com/asterisksounds/asterisk-sound-bot/internal/myaudio"
	"github.com/asterisksounds/asterisk-sound-bot/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	goodbyeLine   = "asterisk-core-sounds-en-gsm/vm-goodbye.mp3\ten_GB\tGoodbye"
	wantStatus    = "\"Goodbye\"\n\n*️⃣ Asterisk sound 'vm-goodbye.wav'\n📦 From package 'asterisk-core-sounds'\n🇬🇧 Spoken in British English"
	wantAltText   = "A telephone interactive voice response (IVR) system saying \"Goodbye\" in British English"
	testBucket    = "asterisk-sounds"
	testMediaID   = "109876"
	testStatusURL = "https://social.example/@sounds/1"
)

var testRunID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

type fakeStore struct {
	data  []byte
	err   error
	calls []string
}

func (f *fakeStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	f.calls = append(f.calls, bucket+"/"+key)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

// fakeSocial records calls and fails the operation named in failOn.
type fakeSocial struct {
	failOn string
	calls  []string

	upload      mastodon.MediaUpload
	description string
	post        mastodon.StatusPost
}

func (f *fakeSocial) fail(op string) error {
	f.calls = append(f.calls, op)
	if f.failOn == op {
		return errors.NewStd(op + " rejected")
	}
	return nil
}

func (f *fakeSocial) UploadMedia(_ context.Context, upload mastodon.MediaUpload) (*mastodon.Attachment, error) {
	f.upload = upload
	if err := f.fail("upload"); err != nil {
		return nil, err
	}
	return &mastodon.Attachment{ID: testMediaID, Type: "audio", URL: "https://files.example/a.mp3"}, nil
}

func (f *fakeSocial) UpdateMediaDescription(_ context.Context, mediaID, description string) (*mastodon.Attachment, error) {
	f.description = description
	if err := f.fail("describe:" + mediaID); err != nil {
		return nil, err
	}
	return &mastodon.Attachment{ID: mediaID, Description: description}, nil
}

func (f *fakeSocial) CreateStatus(_ context.Context, post mastodon.StatusPost) (*mastodon.Status, error) {
	f.post = post
	if err := f.fail("post"); err != nil {
		return nil, err
	}
	return &mastodon.Status{ID: "1", URL: testStatusURL, Content: "<p>Goodbye</p>"}, nil
}

func writeCatalog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sound-list.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

type firstSource struct{}

func (firstSource) IntN(int) int { return 0 }

func newTestPipeline(t *testing.T, cfg Config, store ObjectStore, social SocialClient, logBuf *bytes.Buffer) *Pipeline {
	t.Helper()
	if cfg.Bucket == "" {
		cfg.Bucket = testBucket
	}
	if logBuf == nil {
		logBuf = &bytes.Buffer{}
	}
	return NewPipeline(cfg, store, social,
		WithSource(firstSource{}),
		WithRunID(testRunID),
		WithLogger(logger.NewSlogLogger(logBuf, logger.LogLevelDebug, time.UTC)))
}

func testWAV(t *testing.T) []byte {
	t.Helper()
	data, err := testutil.EncodeWAV([]int{0, 1000, -1000, 0}, 8000, 16, 1)
	require.NoError(t, err)
	return data
}

func TestRunPublishesSound(t *testing.T) {
	t.Parallel()

	store := &fakeStore{data: testWAV(t)}
	social := &fakeSocial{}
	var logs bytes.Buffer
	p := newTestPipeline(t, Config{
		CatalogPath: writeCatalog(t, goodbyeLine),
		Visibility:  "public",
		SetLanguage: true,
	}, store, social, &logs)

	res, err := p.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, []string{testBucket + "/asterisk-core-sounds-en-gsm/vm-goodbye.mp3"}, store.calls)
	assert.Equal(t, []string{"upload", "describe:" + testMediaID, "post"}, social.calls)

	assert.Equal(t, "vm-goodbye.mp3", social.upload.FileName)
	assert.Equal(t, "audio/mpeg", social.upload.MimeType)
	assert.True(t, social.upload.Synchronous)
	assert.Equal(t, store.data, social.upload.Data)

	assert.Equal(t, wantAltText, social.description)

	assert.Equal(t, wantStatus, social.post.Text)
	assert.Equal(t, []string{testMediaID}, social.post.MediaIDs)
	assert.Equal(t, "public", social.post.Visibility)
	assert.Equal(t, "en", social.post.Language)
	assert.Equal(t, testRunID.String(), social.post.IdempotencyKey)

	assert.Equal(t, testMediaID, res.MediaID)
	assert.Equal(t, testStatusURL, res.StatusURL)
	assert.Equal(t, "Goodbye", res.PostedText)
	report, err := res.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(report), "posted_text: Goodbye")
	assert.Equal(t, "wav", res.Audio.Format)
	assert.Equal(t, len(store.data), res.Bytes)
	for _, stage := range []Stage{StageSelecting, StageFetching, StageUploading, StageDescribing, StagePosting} {
		assert.Contains(t, res.Timings, stage.String())
	}

	assert.Contains(t, logs.String(), "✅ Posted to Mastodon")
	assert.Contains(t, logs.String(), testRunID.String())
}

func TestRunWithoutLanguage(t *testing.T) {
	t.Parallel()

	social := &fakeSocial{}
	p := newTestPipeline(t, Config{CatalogPath: writeCatalog(t, "misc/beep.gsm\ten\tBeep")},
		&fakeStore{data: []byte("not a wav")}, social, nil)

	res, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Empty(t, social.post.Language)
	assert.Equal(t, "public", social.post.Visibility, "empty visibility defaults to public")
	assert.Equal(t, "beep.wav", social.upload.FileName)
	assert.Equal(t, "audio/wav", social.upload.MimeType)
	assert.Equal(t, myaudio.FormatUnknown, res.Audio.Format)
}

func TestRunDryRunStopsAfterFetch(t *testing.T) {
	t.Parallel()

	store := &fakeStore{data: testWAV(t)}
	social := &fakeSocial{}
	p := newTestPipeline(t, Config{CatalogPath: writeCatalog(t, goodbyeLine), DryRun: true}, store, social, nil)

	res, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StageDone, res.Stage)
	assert.True(t, res.DryRun)
	assert.Len(t, store.calls, 1)
	assert.Empty(t, social.calls)
	assert.Equal(t, wantStatus, res.Caption.StatusText)
	assert.Equal(t, wantAltText, res.Caption.AltText)
	assert.Empty(t, res.MediaID)

	// No social client is needed at all
	p = newTestPipeline(t, Config{CatalogPath: writeCatalog(t, goodbyeLine), DryRun: true}, store, nil, nil)
	_, err = p.Run(t.Context())
	require.NoError(t, err)
}

func TestRunSelectionFailuresTouchNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lines    []string
		missing  bool
		sentinel error
		exit     int
		failure  string
	}{
		{"unknown locale", []string{"a.gsm\tfr_FR\tBonjour"}, false, locale.ErrUnknownLocale, ExitUnknownLocale, "UnknownLocale"},
		{"malformed record", []string{"just-a-path.gsm"}, false, catalog.ErrMalformedRecord, ExitMalformedRecord, "MalformedRecord"},
		{"empty catalog", []string{"", "   "}, false, catalog.ErrEmptyCatalog, ExitEmptyCatalog, "EmptyCatalog"},
		{"missing catalog", nil, true, catalog.ErrCatalogUnavailable, ExitCatalogUnavailable, "CatalogUnavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "absent.txt")
			if !tt.missing {
				path = writeCatalog(t, tt.lines...)
			}
			store := &fakeStore{data: testWAV(t)}
			social := &fakeSocial{}

			res, err := newTestPipeline(t, Config{CatalogPath: path}, store, social, nil).Run(t.Context())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.exit, ExitCode(err))

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, StageSelecting, stageErr.Stage)
			assert.Equal(t, tt.failure, stageErr.Failure())

			assert.Equal(t, StageAborted, res.Stage)
			assert.Equal(t, StageSelecting, res.FailedStage)
			assert.Empty(t, store.calls)
			assert.Empty(t, social.calls)
		})
	}
}

func TestRunAbortsAtFirstFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		storeErr  error
		failOn    string
		wantStage Stage
		wantCalls []string
		wantExit  int
	}{
		{"fetch", errors.NewStd("no such key"), "", StageFetching, nil, ExitFetchFailure},
		{"upload", nil, "upload", StageUploading, []string{"upload"}, ExitUploadFailure},
		{"describe", nil, "describe:" + testMediaID, StageDescribing, []string{"upload", "describe:" + testMediaID}, ExitDescribeFailure},
		{"post", nil, "post", StagePosting, []string{"upload", "describe:" + testMediaID, "post"}, ExitPostFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeStore{data: testWAV(t), err: tt.storeErr}
			social := &fakeSocial{failOn: tt.failOn}

			res, err := newTestPipeline(t, Config{CatalogPath: writeCatalog(t, goodbyeLine)}, store, social, nil).Run(t.Context())
			require.Error(t, err)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.wantStage, stageErr.Stage)
			assert.Equal(t, tt.wantExit, ExitCode(err))
			assert.Equal(t, tt.wantCalls, social.calls)
			assert.Equal(t, StageAborted, res.Stage)
			assert.Equal(t, tt.wantStage, res.FailedStage)
			assert.Empty(t, res.StatusURL)
		})
	}
}

func TestRunCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	social := &fakeSocial{}
	res, err := newTestPipeline(t, Config{CatalogPath: writeCatalog(t, goodbyeLine)}, &fakeStore{}, social, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageSelecting, res.FailedStage)
	assert.Empty(t, social.calls)
}

func TestRunCallsAreAPrefixOfTheFullSequence(t *testing.T) {
	t.Parallel()

	full := []string{"upload", "describe:" + testMediaID, "post"}
	catalogPath := writeCatalog(t, goodbyeLine)
	wav := testWAV(t)

	rapid.Check(t, func(rt *rapid.T) {
		failOn := rapid.SampledFrom(append([]string{"", "fetch"}, full...)).Draw(rt, "failOn")

		store := &fakeStore{data: wav}
		if failOn == "fetch" {
			store.err = errors.NewStd("unreachable")
		}
		social := &fakeSocial{failOn: failOn}

		res, err := newTestPipeline(t, Config{CatalogPath: catalogPath}, store, social, nil).Run(context.Background())
		if len(social.calls) > len(full) {
			rt.Fatalf("too many calls: %v", social.calls)
		}
		for i, call := range social.calls {
			if call != full[i] {
				rt.Fatalf("calls %v are not a prefix of %v", social.calls, full)
			}
		}
		if failOn == "" {
			if err != nil || res.Stage != StageDone || len(social.calls) != len(full) {
				rt.Fatalf("expected complete run, got %v %v", res.Stage, err)
			}
			return
		}
		if err == nil || res.Stage != StageAborted || !res.Stage.Terminal() {
			rt.Fatalf("expected aborted run, got %v", res.Stage)
		}
		if n := len(social.calls); n > 0 && social.calls[n-1] != failOn {
			rt.Fatalf("run continued after %s failed: %v", failOn, social.calls)
		}
	})
}

func TestReportYAML(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, Config{CatalogPath: writeCatalog(t, goodbyeLine), DryRun: true},
		&fakeStore{data: testWAV(t)}, nil, nil)
	res, err := p.Run(t.Context())
	require.NoError(t, err)

	out, err := res.YAML()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, testRunID.String(), doc["run_id"])
	assert.Equal(t, "done", doc["stage"])
	assert.Equal(t, true, doc["dry_run"])
	assert.Equal(t, "asterisk-core-sounds", doc["package"])
	assert.Equal(t, "vm-goodbye.wav", doc["file_name"])
	assert.NotContains(t, doc, "failed_stage")

	captionDoc, ok := doc["caption"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, wantStatus, captionDoc["status_text"])

	localeDoc, ok := doc["locale"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "en_GB", localeDoc["code"])

	audioDoc, ok := doc["audio"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "wav", audioDoc["format"])
	assert.Equal(t, 8000, audioDoc["sample_rate"])
}

func TestReportOfAbortedRun(t *testing.T) {
	t.Parallel()

	res, err := newTestPipeline(t, Config{CatalogPath: writeCatalog(t, goodbyeLine)},
		&fakeStore{data: testWAV(t)}, &fakeSocial{failOn: "post"}, nil).Run(t.Context())
	require.Error(t, err)

	rep := res.Report()
	assert.Equal(t, StageAborted, rep.Stage)
	assert.Equal(t, "posting", rep.FailedStage)
	assert.Equal(t, "posting failed: post rejected", rep.Error)
	assert.Equal(t, testMediaID, rep.MediaID)
	assert.False(t, res.FinishedAt.IsZero())
	assert.GreaterOrEqual(t, res.Elapsed(), time.Duration(0))
}

func TestRunLogsAreJSON(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	_, err := newTestPipeline(t, Config{CatalogPath: writeCatalog(t, goodbyeLine), DryRun: true},
		&fakeStore{data: testWAV(t)}, nil, &logs).Run(t.Context())
	require.NoError(t, err)

	for line := range strings.SplitSeq(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
	}
}

func TestUploadFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vm-goodbye.mp3", uploadFileName("pkg/vm-goodbye.mp3", "audio/mpeg"))
	assert.Equal(t, "beep.wav", uploadFileName("misc/beep.gsm", "audio/wav"))
	assert.Equal(t, "noext.wav", uploadFileName("noext", "audio/wav"))
}
