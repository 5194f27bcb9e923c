// Package ivsapi wraps the Amazon IVS control-plane calls the service needs:
// channel lookup for viewers and channel/stream-key management for admins.
// Lookups are deduplicated and optionally cached so a burst of viewers does
// not translate into a burst of AWS API calls.
package ivsapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ivs"
	"github.com/aws/aws-sdk-go-v2/service/ivs/types"
	"golang.org/x/sync/singleflight"

	"github.com/lumaview/ivs-lounge/backend/crypto"
	"github.com/lumaview/ivs-lounge/backend/telemetry"
)

// Channel is the subset of IVS channel metadata the frontend consumes.
type Channel struct {
	ARN            string `json:"arn"`
	Name           string `json:"name"`
	PlaybackURL    string `json:"playbackUrl"`
	IngestEndpoint string `json:"ingestEndpoint"`
	Type           string `json:"type"`
	LatencyMode    string `json:"latencyMode"`
	Authorized     bool   `json:"authorized"`
}

// StreamKey carries the broadcast secret for a channel. Value must never be
// logged; it reaches storage only through the encryptor.
type StreamKey struct {
	ARN        string `json:"arn"`
	ChannelARN string `json:"channelArn"`
	Value      string `json:"value"`
}

// API is the slice of the IVS SDK client the service calls. *ivs.Client
// satisfies it; tests substitute a stub.
type API interface {
	GetChannel(ctx context.Context, in *ivs.GetChannelInput, opts ...func(*ivs.Options)) (*ivs.GetChannelOutput, error)
	CreateChannel(ctx context.Context, in *ivs.CreateChannelInput, opts ...func(*ivs.Options)) (*ivs.CreateChannelOutput, error)
	ListChannels(ctx context.Context, in *ivs.ListChannelsInput, opts ...func(*ivs.Options)) (*ivs.ListChannelsOutput, error)
	ListStreamKeys(ctx context.Context, in *ivs.ListStreamKeysInput, opts ...func(*ivs.Options)) (*ivs.ListStreamKeysOutput, error)
	GetStreamKey(ctx context.Context, in *ivs.GetStreamKeyInput, opts ...func(*ivs.Options)) (*ivs.GetStreamKeyOutput, error)
}

// KV persists small key/value state (the stream key snapshot). db.GetKV and
// db.SetKV are adapted to this in main.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Service fronts the IVS API with deduplication, caching, and encrypted
// stream key persistence. Cache, KV, and the encryptor are all optional.
type Service struct {
	api      API
	cache    Cache
	cacheTTL time.Duration
	kv       KV
	enc      crypto.Encryptor
	sf       singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables channel-metadata caching with the given TTL.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithStreamKeyStore enables encrypted at-rest persistence of stream keys.
func WithStreamKeyStore(kv KV, enc crypto.Encryptor) Option {
	return func(s *Service) {
		s.kv = kv
		s.enc = enc
	}
}

// NewService wraps an API client.
func NewService(api API, opts ...Option) *Service {
	s := &Service{api: api}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewClient builds the real IVS SDK client for a region using the default
// AWS credential chain.
func NewClient(ctx context.Context, region string) (*ivs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ivs.NewFromConfig(cfg), nil
}

// GetChannel fetches channel metadata by ARN. Concurrent lookups for the
// same ARN collapse into one API call; results are cached when a cache is
// configured.
func (s *Service) GetChannel(ctx context.Context, arn string) (Channel, error) {
	if arn == "" {
		return Channel{}, fmt.Errorf("channel arn empty")
	}
	start := time.Now()
	if s.cache != nil {
		ch, ok, err := s.cache.Get(ctx, arn)
		if err != nil {
			slog.Warn("channel cache read failed", slog.Any("err", err))
		} else if ok {
			telemetry.ObserveIVSCall(time.Since(start), true)
			return ch, nil
		}
	}
	v, err, _ := s.sf.Do(arn, func() (any, error) {
		out, err := s.api.GetChannel(ctx, &ivs.GetChannelInput{Arn: aws.String(arn)})
		if err != nil {
			return Channel{}, fmt.Errorf("get channel: %w", err)
		}
		return channelFromSDK(out.Channel), nil
	})
	telemetry.ObserveIVSCall(time.Since(start), false)
	if err != nil {
		return Channel{}, err
	}
	ch := v.(Channel)
	if s.cache != nil {
		if err := s.cache.Set(ctx, arn, ch, s.cacheTTL); err != nil {
			slog.Warn("channel cache write failed", slog.Any("err", err))
		}
	}
	return ch, nil
}

// CreateChannel provisions a new IVS channel and returns it together with
// its initial stream key.
func (s *Service) CreateChannel(ctx context.Context, name, channelType, latencyMode string) (Channel, StreamKey, error) {
	if name == "" {
		return Channel{}, StreamKey{}, fmt.Errorf("channel name empty")
	}
	if channelType == "" {
		channelType = string(types.ChannelTypeStandardChannelType)
	}
	if latencyMode == "" {
		latencyMode = string(types.ChannelLatencyModeLowLatency)
	}
	out, err := s.api.CreateChannel(ctx, &ivs.CreateChannelInput{
		Name:        aws.String(name),
		Type:        types.ChannelType(channelType),
		LatencyMode: types.ChannelLatencyMode(latencyMode),
	})
	if err != nil {
		return Channel{}, StreamKey{}, fmt.Errorf("create channel: %w", err)
	}
	ch := channelFromSDK(out.Channel)
	key := StreamKey{}
	if out.StreamKey != nil {
		key = StreamKey{
			ARN:        aws.ToString(out.StreamKey.Arn),
			ChannelARN: aws.ToString(out.StreamKey.ChannelArn),
			Value:      aws.ToString(out.StreamKey.Value),
		}
		s.persistStreamKey(ctx, key)
	}
	return ch, key, nil
}

// GetStreamKey resolves the first stream key of a channel. IVS returns key
// values only from GetStreamKey, so this lists the channel's keys and then
// fetches the first one.
func (s *Service) GetStreamKey(ctx context.Context, channelArn string) (StreamKey, error) {
	if channelArn == "" {
		return StreamKey{}, fmt.Errorf("channel arn empty")
	}
	list, err := s.api.ListStreamKeys(ctx, &ivs.ListStreamKeysInput{ChannelArn: aws.String(channelArn)})
	if err != nil {
		return StreamKey{}, fmt.Errorf("list stream keys: %w", err)
	}
	if len(list.StreamKeys) == 0 {
		return StreamKey{}, fmt.Errorf("no stream keys for channel")
	}
	out, err := s.api.GetStreamKey(ctx, &ivs.GetStreamKeyInput{Arn: list.StreamKeys[0].Arn})
	if err != nil {
		return StreamKey{}, fmt.Errorf("get stream key: %w", err)
	}
	key := StreamKey{
		ARN:        aws.ToString(out.StreamKey.Arn),
		ChannelARN: aws.ToString(out.StreamKey.ChannelArn),
		Value:      aws.ToString(out.StreamKey.Value),
	}
	s.persistStreamKey(ctx, key)
	return key, nil
}

// ListChannels enumerates channels in the account. Summaries carry no
// playback URL in some SDK versions, so only the fields IVS returns here
// are populated.
func (s *Service) ListChannels(ctx context.Context) ([]Channel, error) {
	var out []Channel
	var next *string
	for {
		page, err := s.api.ListChannels(ctx, &ivs.ListChannelsInput{NextToken: next})
		if err != nil {
			return nil, fmt.Errorf("list channels: %w", err)
		}
		for _, c := range page.Channels {
			out = append(out, Channel{
				ARN:         aws.ToString(c.Arn),
				Name:        aws.ToString(c.Name),
				LatencyMode: string(c.LatencyMode),
				Authorized:  c.Authorized,
			})
		}
		if page.NextToken == nil || aws.ToString(page.NextToken) == "" {
			break
		}
		next = page.NextToken
	}
	return out, nil
}

// persistStreamKey writes the key to kv storage encrypted. Skipped silently
// when no store or encryptor is configured; storing broadcast secrets in
// plaintext is not an option.
func (s *Service) persistStreamKey(ctx context.Context, key StreamKey) {
	if s.kv == nil || s.enc == nil || key.Value == "" {
		return
	}
	enc, err := crypto.EncryptString(s.enc, key.Value)
	if err != nil {
		slog.Error("stream key encryption failed", slog.Any("err", err))
		return
	}
	if err := s.kv.Set(ctx, "streamkey:"+key.ChannelARN, enc); err != nil {
		slog.Warn("stream key persistence failed", slog.Any("err", err))
	}
}

// StoredStreamKey returns the previously persisted stream key for a channel,
// decrypted. Empty string when none is stored.
func (s *Service) StoredStreamKey(ctx context.Context, channelArn string) (string, error) {
	if s.kv == nil || s.enc == nil {
		return "", nil
	}
	enc, err := s.kv.Get(ctx, "streamkey:"+channelArn)
	if err != nil || enc == "" {
		return "", err
	}
	return crypto.DecryptString(s.enc, enc)
}

func channelFromSDK(c *types.Channel) Channel {
	if c == nil {
		return Channel{}
	}
	return Channel{
		ARN:            aws.ToString(c.Arn),
		Name:           aws.ToString(c.Name),
		PlaybackURL:    aws.ToString(c.PlaybackUrl),
		IngestEndpoint: aws.ToString(c.IngestEndpoint),
		Type:           string(c.Type),
		LatencyMode:    string(c.LatencyMode),
		Authorized:     c.Authorized,
	}
}
