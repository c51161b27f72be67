package kvserver

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuiwang02/kvstore/internal/store"
	"github.com/kuiwang02/kvstore/internal/wire"
)

func newTestServer(t *testing.T) (*Server, *net.UDPConn) {
	t.Helper()

	srv, err := New(Config{
		Addr:   "127.0.0.1:0",
		Limits: store.DefaultLimits,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	go func() {
		_ = srv.Run()
	}()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := net.DialUDP("udp", nil, srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))

	return srv, client
}

func send(t *testing.T, conn *net.UDPConn, id wire.MessageID, req wire.Request) wire.Response {
	t.Helper()

	frame := wire.EncodeFrame(id, wire.EncodeRequest(req))
	_, err := conn.Write(frame)
	require.NoError(t, err)

	buf := make([]byte, wire.MaxFrameSize)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	gotID, payload, err := wire.DecodeFrame(buf[:n])
	require.NoError(t, err)
	require.Equal(t, id, gotID)

	resp, errCode := wire.DecodeResponse(payload)
	require.Equal(t, wire.Success, errCode)
	return resp
}

func TestEndToEndLiveness(t *testing.T) {
	_, client := newTestServer(t)

	resp := send(t, client, wire.MessageID{1}, wire.Request{Command: wire.CommandIsAlive})
	require.Equal(t, wire.Success, resp.ErrCode)
}

func TestEndToEndPutGet(t *testing.T) {
	_, client := newTestServer(t)
	id := wire.MessageID{2}

	version := int32(7)
	putResp := send(t, client, id, wire.Request{
		Command: wire.CommandPut,
		Key:     []byte{0x61, 0x62},
		Value:   []byte{0x01, 0x02, 0x03},
		Version: &version,
	})
	require.Equal(t, wire.Success, putResp.ErrCode)

	getResp := send(t, client, wire.MessageID{3}, wire.Request{
		Command: wire.CommandGet,
		Key:     []byte{0x61, 0x62},
	})
	require.Equal(t, wire.Success, getResp.ErrCode)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, getResp.Value)
	require.NotNil(t, getResp.Version)
	require.Equal(t, int32(7), *getResp.Version)
}

func TestEndToEndMissingKey(t *testing.T) {
	_, client := newTestServer(t)

	resp := send(t, client, wire.MessageID{4}, wire.Request{
		Command: wire.CommandGet,
		Key:     []byte{0xFF},
	})
	require.Equal(t, wire.NonExistentKey, resp.ErrCode)
}

func TestEndToEndOversizeKey(t *testing.T) {
	_, client := newTestServer(t)

	resp := send(t, client, wire.MessageID{5}, wire.Request{
		Command: wire.CommandPut,
		Key:     make([]byte, 33),
		Value:   []byte{0x00},
	})
	require.Equal(t, wire.InvalidKey, resp.ErrCode)
}

func TestEndToEndDuplicateSuppression(t *testing.T) {
	_, client := newTestServer(t)
	id := wire.MessageID{6}

	req := wire.Request{Command: wire.CommandPut, Key: []byte{0x61}, Value: []byte{0x01}}
	first := send(t, client, id, req)
	second := send(t, client, id, req)
	require.Equal(t, first, second)

	getResp := send(t, client, wire.MessageID{7}, wire.Request{Command: wire.CommandGet, Key: []byte{0x61}})
	require.Equal(t, []byte{0x01}, getResp.Value)
}

func TestEndToEndChecksumTamperingDropsNoReply(t *testing.T) {
	_, client := newTestServer(t)

	frame := wire.EncodeFrame(wire.MessageID{8}, wire.EncodeRequest(wire.Request{Command: wire.CommandIsAlive}))
	frame[len(frame)-1] ^= 0xFF // corrupt the checksum field's final byte

	_, err := client.Write(frame)
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	buf := make([]byte, wire.MaxFrameSize)
	_, err = client.Read(buf)
	require.Error(t, err) // read deadline exceeded: no reply was sent
}

func TestEndToEndWipeout(t *testing.T) {
	_, client := newTestServer(t)

	send(t, client, wire.MessageID{9}, wire.Request{Command: wire.CommandPut, Key: []byte{1}, Value: []byte{1}})
	send(t, client, wire.MessageID{10}, wire.Request{Command: wire.CommandPut, Key: []byte{2}, Value: []byte{2}})

	wipeResp := send(t, client, wire.MessageID{11}, wire.Request{Command: wire.CommandWipeout})
	require.Equal(t, wire.Success, wipeResp.ErrCode)

	getResp := send(t, client, wire.MessageID{12}, wire.Request{Command: wire.CommandGet, Key: []byte{1}})
	require.Equal(t, wire.NonExistentKey, getResp.ErrCode)
}

func TestEndToEndUnrecognizedCommand(t *testing.T) {
	_, client := newTestServer(t)

	resp := send(t, client, wire.MessageID{13}, wire.Request{Command: 0x99})
	require.Equal(t, wire.UnrecognizedCommand, resp.ErrCode)
}

func TestEndToEndGetPIDAndMembership(t *testing.T) {
	_, client := newTestServer(t)

	pidResp := send(t, client, wire.MessageID{14}, wire.Request{Command: wire.CommandGetPID})
	require.Equal(t, wire.Success, pidResp.ErrCode)
	require.NotNil(t, pidResp.PID)

	countResp := send(t, client, wire.MessageID{15}, wire.Request{Command: wire.CommandGetMembershipCount})
	require.Equal(t, wire.Success, countResp.ErrCode)
	require.NotNil(t, countResp.MembershipCount)
	require.Equal(t, int32(1), *countResp.MembershipCount)

	listResp := send(t, client, wire.MessageID{16}, wire.Request{Command: wire.CommandGetMembershipList})
	require.Equal(t, wire.Success, listResp.ErrCode)
}
