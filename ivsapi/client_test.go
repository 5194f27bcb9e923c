package ivsapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ivs"
	"github.com/aws/aws-sdk-go-v2/service/ivs/types"

	"github.com/lumaview/ivs-lounge/backend/crypto"
)

type stubAPI struct {
	getChannelCalls atomic.Int64
	getChannelDelay time.Duration

	channel   *types.Channel
	streamKey *types.StreamKey
	pages     []*ivs.ListChannelsOutput
	pageIdx   int

	createInput *ivs.CreateChannelInput

	err error
}

func (s *stubAPI) GetChannel(ctx context.Context, in *ivs.GetChannelInput, _ ...func(*ivs.Options)) (*ivs.GetChannelOutput, error) {
	s.getChannelCalls.Add(1)
	if s.getChannelDelay > 0 {
		time.Sleep(s.getChannelDelay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ivs.GetChannelOutput{Channel: s.channel}, nil
}

func (s *stubAPI) CreateChannel(ctx context.Context, in *ivs.CreateChannelInput, _ ...func(*ivs.Options)) (*ivs.CreateChannelOutput, error) {
	s.createInput = in
	if s.err != nil {
		return nil, s.err
	}
	return &ivs.CreateChannelOutput{Channel: s.channel, StreamKey: s.streamKey}, nil
}

func (s *stubAPI) ListChannels(ctx context.Context, in *ivs.ListChannelsInput, _ ...func(*ivs.Options)) (*ivs.ListChannelsOutput, error) {
	if s.pageIdx >= len(s.pages) {
		return &ivs.ListChannelsOutput{}, nil
	}
	out := s.pages[s.pageIdx]
	s.pageIdx++
	return out, nil
}

func (s *stubAPI) ListStreamKeys(ctx context.Context, in *ivs.ListStreamKeysInput, _ ...func(*ivs.Options)) (*ivs.ListStreamKeysOutput, error) {
	if s.streamKey == nil {
		return &ivs.ListStreamKeysOutput{}, nil
	}
	return &ivs.ListStreamKeysOutput{StreamKeys: []types.StreamKeySummary{{Arn: s.streamKey.Arn, ChannelArn: s.streamKey.ChannelArn}}}, nil
}

func (s *stubAPI) GetStreamKey(ctx context.Context, in *ivs.GetStreamKeyInput, _ ...func(*ivs.Options)) (*ivs.GetStreamKeyOutput, error) {
	return &ivs.GetStreamKeyOutput{StreamKey: s.streamKey}, nil
}

// mapCache is an in-process Cache for tests.
type mapCache struct {
	mu sync.Mutex
	m  map[string]Channel
}

func (c *mapCache) Get(ctx context.Context, key string) (Channel, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.m[key]
	return ch, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, ch Channel, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]Channel{}
	}
	c.m[key] = ch
	return nil
}

// mapKV is an in-process KV for tests.
type mapKV struct {
	mu sync.Mutex
	m  map[string]string
}

func (k *mapKV) Get(ctx context.Context, key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.m[key], nil
}

func (k *mapKV) Set(ctx context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.m == nil {
		k.m = map[string]string{}
	}
	k.m[key] = value
	return nil
}

func testChannel() *types.Channel {
	return &types.Channel{
		Arn:            aws.String("arn:aws:ivs:us-east-1:123:channel/abc123"),
		Name:           aws.String("lounge"),
		PlaybackUrl:    aws.String("https://play.example/m3u8"),
		IngestEndpoint: aws.String("rtmps://ingest.example"),
		Type:           types.ChannelTypeStandardChannelType,
		LatencyMode:    types.ChannelLatencyModeLowLatency,
	}
}

func TestGetChannelMapsFields(t *testing.T) {
	api := &stubAPI{channel: testChannel()}
	svc := NewService(api)

	ch, err := svc.GetChannel(context.Background(), "arn:aws:ivs:us-east-1:123:channel/abc123")
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if ch.Name != "lounge" || ch.PlaybackURL != "https://play.example/m3u8" || ch.IngestEndpoint != "rtmps://ingest.example" {
		t.Errorf("unexpected channel: %+v", ch)
	}
	if ch.Type != string(types.ChannelTypeStandardChannelType) {
		t.Errorf("type = %q", ch.Type)
	}
}

func TestGetChannelRejectsEmptyARN(t *testing.T) {
	svc := NewService(&stubAPI{})
	if _, err := svc.GetChannel(context.Background(), ""); err == nil {
		t.Fatal("want error for empty arn")
	}
}

func TestGetChannelCaches(t *testing.T) {
	api := &stubAPI{channel: testChannel()}
	svc := NewService(api, WithCache(&mapCache{}, time.Minute))
	ctx := context.Background()
	arn := "arn:aws:ivs:us-east-1:123:channel/abc123"

	if _, err := svc.GetChannel(ctx, arn); err != nil {
		t.Fatalf("first GetChannel: %v", err)
	}
	if _, err := svc.GetChannel(ctx, arn); err != nil {
		t.Fatalf("second GetChannel: %v", err)
	}
	if n := api.getChannelCalls.Load(); n != 1 {
		t.Errorf("api calls = %d, want 1 (second lookup should hit cache)", n)
	}
}

func TestGetChannelDeduplicatesConcurrentLookups(t *testing.T) {
	api := &stubAPI{channel: testChannel(), getChannelDelay: 30 * time.Millisecond}
	svc := NewService(api)
	arn := "arn:aws:ivs:us-east-1:123:channel/abc123"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetChannel(context.Background(), arn); err != nil {
				t.Errorf("GetChannel: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := api.getChannelCalls.Load(); n >= 8 {
		t.Errorf("api calls = %d, want fewer than the %d concurrent lookups", n, 8)
	}
}

func TestCreateChannelAppliesDefaults(t *testing.T) {
	api := &stubAPI{channel: testChannel(), streamKey: &types.StreamKey{
		Arn:        aws.String("arn:aws:ivs:us-east-1:123:stream-key/k1"),
		ChannelArn: aws.String("arn:aws:ivs:us-east-1:123:channel/abc123"),
		Value:      aws.String("sk_secret"),
	}}
	svc := NewService(api)

	_, key, err := svc.CreateChannel(context.Background(), "lounge", "", "")
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if api.createInput.Type != types.ChannelTypeStandardChannelType {
		t.Errorf("type default = %q", api.createInput.Type)
	}
	if api.createInput.LatencyMode != types.ChannelLatencyModeLowLatency {
		t.Errorf("latency default = %q", api.createInput.LatencyMode)
	}
	if key.Value != "sk_secret" {
		t.Errorf("stream key value = %q", key.Value)
	}

	if _, _, err := svc.CreateChannel(context.Background(), "", "", ""); err == nil {
		t.Error("want error for empty name")
	}
}

func TestGetStreamKeyPersistsEncrypted(t *testing.T) {
	rawKey := make([]byte, 32)
	if _, err := rand.Read(rawKey); err != nil {
		t.Fatal(err)
	}
	enc, err := crypto.NewAESEncryptor(base64.StdEncoding.EncodeToString(rawKey))
	if err != nil {
		t.Fatal(err)
	}
	kv := &mapKV{}
	chanArn := "arn:aws:ivs:us-east-1:123:channel/abc123"
	api := &stubAPI{streamKey: &types.StreamKey{
		Arn:        aws.String("arn:aws:ivs:us-east-1:123:stream-key/k1"),
		ChannelArn: aws.String(chanArn),
		Value:      aws.String("sk_secret_value"),
	}}
	svc := NewService(api, WithStreamKeyStore(kv, enc))

	key, err := svc.GetStreamKey(context.Background(), chanArn)
	if err != nil {
		t.Fatalf("GetStreamKey: %v", err)
	}
	if key.Value != "sk_secret_value" {
		t.Errorf("value = %q", key.Value)
	}

	stored, _ := kv.Get(context.Background(), "streamkey:"+chanArn)
	if stored == "" {
		t.Fatal("stream key not persisted")
	}
	if stored == "sk_secret_value" {
		t.Fatal("stream key stored in plaintext")
	}
	got, err := svc.StoredStreamKey(context.Background(), chanArn)
	if err != nil {
		t.Fatalf("StoredStreamKey: %v", err)
	}
	if got != "sk_secret_value" {
		t.Errorf("StoredStreamKey = %q", got)
	}
}

func TestGetStreamKeyNoKeys(t *testing.T) {
	svc := NewService(&stubAPI{})
	if _, err := svc.GetStreamKey(context.Background(), "arn:x"); err == nil {
		t.Fatal("want error when channel has no stream keys")
	}
}

func TestListChannelsPaginates(t *testing.T) {
	api := &stubAPI{pages: []*ivs.ListChannelsOutput{
		{
			Channels:  []types.ChannelSummary{{Arn: aws.String("arn:1"), Name: aws.String("one")}},
			NextToken: aws.String("t1"),
		},
		{
			Channels: []types.ChannelSummary{{Arn: aws.String("arn:2"), Name: aws.String("two")}},
		},
	}}
	svc := NewService(api)

	chans, err := svc.ListChannels(context.Background())
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(chans) != 2 {
		t.Fatalf("len = %d, want 2", len(chans))
	}
	if chans[0].ARN != "arn:1" || chans[1].Name != "two" {
		t.Errorf("unexpected channels: %+v", chans)
	}
}

func TestGetChannelErrorWraps(t *testing.T) {
	api := &stubAPI{err: fmt.Errorf("throttled")}
	svc := NewService(api)
	if _, err := svc.GetChannel(context.Background(), "arn:x"); err == nil {
		t.Fatal("want error")
	}
}
