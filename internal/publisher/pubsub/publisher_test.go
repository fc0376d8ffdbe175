package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakePublisher(t *testing.T) (*Publisher, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	ctx := context.Background()
	p, err := Connect(ctx, "test-project", "campaigns", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	_, err = p.client.CreateTopic(ctx, "campaigns")
	require.NoError(t, err)
	return p, srv
}

func TestPublishSendsJSONPayload(t *testing.T) {
	t.Parallel()

	p, srv := newFakePublisher(t)

	payload := map[string]any{"records": 2, "keywords": []string{"test region 카페"}}
	id, err := p.Publish(context.Background(), payload)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "application/json", msgs[0].Attributes["content_type"])

	var got map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.EqualValues(t, 2, got["records"])
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	p, _ := newFakePublisher(t)
	_, err := p.Publish(context.Background(), map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}

func TestConnectValidation(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "", "topic")
	require.Error(t, err)

	var nilPublisher *Publisher
	_, err = nilPublisher.Publish(context.Background(), "x")
	require.Error(t, err)
	require.NoError(t, nilPublisher.Close())
}
