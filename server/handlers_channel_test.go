package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ivs"
	"github.com/aws/aws-sdk-go-v2/service/ivs/types"

	"github.com/lumaview/ivs-lounge/backend/ivsapi"
	"github.com/lumaview/ivs-lounge/backend/store"
)

// fakeIVS satisfies ivsapi.API with canned responses.
type fakeIVS struct {
	channel   *types.Channel
	streamKey *types.StreamKey
}

func (f *fakeIVS) GetChannel(ctx context.Context, in *ivs.GetChannelInput, _ ...func(*ivs.Options)) (*ivs.GetChannelOutput, error) {
	return &ivs.GetChannelOutput{Channel: f.channel}, nil
}

func (f *fakeIVS) CreateChannel(ctx context.Context, in *ivs.CreateChannelInput, _ ...func(*ivs.Options)) (*ivs.CreateChannelOutput, error) {
	return &ivs.CreateChannelOutput{Channel: f.channel, StreamKey: f.streamKey}, nil
}

func (f *fakeIVS) ListChannels(ctx context.Context, in *ivs.ListChannelsInput, _ ...func(*ivs.Options)) (*ivs.ListChannelsOutput, error) {
	return &ivs.ListChannelsOutput{Channels: []types.ChannelSummary{{Arn: f.channel.Arn, Name: f.channel.Name}}}, nil
}

func (f *fakeIVS) ListStreamKeys(ctx context.Context, in *ivs.ListStreamKeysInput, _ ...func(*ivs.Options)) (*ivs.ListStreamKeysOutput, error) {
	return &ivs.ListStreamKeysOutput{StreamKeys: []types.StreamKeySummary{{Arn: f.streamKey.Arn}}}, nil
}

func (f *fakeIVS) GetStreamKey(ctx context.Context, in *ivs.GetStreamKeyInput, _ ...func(*ivs.Options)) (*ivs.GetStreamKeyOutput, error) {
	return &ivs.GetStreamKeyOutput{StreamKey: f.streamKey}, nil
}

func newIVSMux(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fake := &fakeIVS{
		channel: &types.Channel{
			Arn:            aws.String("arn:aws:ivs:us-east-1:123:channel/abc123"),
			Name:           aws.String("lounge"),
			PlaybackUrl:    aws.String("https://play.example/index.m3u8"),
			IngestEndpoint: aws.String("rtmps://ingest.example"),
		},
		streamKey: &types.StreamKey{
			Arn:        aws.String("arn:aws:ivs:us-east-1:123:stream-key/k1"),
			ChannelArn: aws.String("arn:aws:ivs:us-east-1:123:channel/abc123"),
			Value:      aws.String("sk_secret"),
		},
	}
	h := NewHandlers(ctx, testConfig(), nil, store.NewMemory(), ivsapi.NewService(fake))
	return NewMux(ctx, h)
}

func TestChannelLookupProxy(t *testing.T) {
	mux := newIVSMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channel/arn:aws:ivs:us-east-1:123:channel/abc123", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var ch ivsapi.Channel
	if err := json.Unmarshal(rec.Body.Bytes(), &ch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ch.PlaybackURL != "https://play.example/index.m3u8" {
		t.Errorf("playback url = %q", ch.PlaybackURL)
	}
}

func TestAdminChannelsRequireAuth(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "tok123")
	mux := newIVSMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/channels", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/channels", nil)
	req.Header.Set("X-Admin-Token", "tok123")
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated: status = %d", rec.Code)
	}
	var chans []ivsapi.Channel
	if err := json.Unmarshal(rec.Body.Bytes(), &chans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(chans) != 1 || chans[0].Name != "lounge" {
		t.Errorf("channels = %+v", chans)
	}
}

func TestAdminCreateChannel(t *testing.T) {
	mux := newIVSMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/channels",
		bytes.NewBufferString(`{"name":"lounge"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Channel   ivsapi.Channel   `json:"channel"`
		StreamKey ivsapi.StreamKey `json:"streamKey"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.StreamKey.Value != "sk_secret" {
		t.Errorf("stream key = %+v", body.StreamKey)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/channels",
		bytes.NewBufferString(`{"name":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name: status = %d, want 400", rec.Code)
	}
}

func TestAdminStreamKey(t *testing.T) {
	mux := newIVSMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/admin/channels/arn:aws:ivs:us-east-1:123:channel/abc123/stream-key", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var key ivsapi.StreamKey
	if err := json.Unmarshal(rec.Body.Bytes(), &key); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if key.Value != "sk_secret" {
		t.Errorf("value = %q", key.Value)
	}
}
