package main

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima/engine/config"
	"github.com/spaghettifunk/anima/engine/transport"
)

func freeAddr(t *testing.T, network string) string {
	t.Helper()
	if network == "udp" {
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		require.NoError(t, err)
		defer conn.Close()
		return conn.LocalAddr().String()
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().String()
}

func scrape(addr string) (string, error) {
	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

func TestReport_WritesManifest(t *testing.T) {
	dir := t.TempDir()
	payload := []byte(`{"assetsFolder":"/exports","data":[{"name":"Crate","path":"/exports/Game/SM_Crate.uemodel","primitiveType":"Mesh"}]}`)

	var out bytes.Buffer
	require.NoError(t, report(&out, payload, dir, 7, false))

	require.Contains(t, out.String(), "1 record(s) under /exports")
	require.Contains(t, out.String(), "Crate -> /exports/Game/SM_Crate.uemodel")

	written, err := os.ReadFile(filepath.Join(dir, "manifest-007.json"))
	require.NoError(t, err)
	require.Equal(t, payload, written)
}

func TestReport_Compressed(t *testing.T) {
	dir := t.TempDir()
	payload := []byte(`{"assetsFolder":"/exports","data":[]}`)

	var out bytes.Buffer
	require.NoError(t, report(&out, payload, dir, 2, true))
	require.NoFileExists(t, filepath.Join(dir, "manifest-002.json"))

	compressed, err := os.ReadFile(filepath.Join(dir, "manifest-002.json.zst"))
	require.NoError(t, err)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	plain, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)
	require.Equal(t, payload, plain)
}

func TestReport_RejectsGarbage(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, report(&out, []byte("not json"), "", 0, false))
}

func TestConfigInit(t *testing.T) {
	opts := &globalOptions{settingsPath: filepath.Join(t.TempDir(), "porter", "porter.toml")}

	cmd := newConfigCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init"})
	require.NoError(t, cmd.Execute())
	require.FileExists(t, opts.settingsPath)

	settings, err := config.Load(opts.settingsPath)
	require.NoError(t, err)
	require.Equal(t, config.DefaultWorkers, settings.Workers)

	cmd = newConfigCmd(opts)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"init"})
	require.Error(t, cmd.Execute())
}

func TestReceive_ServesMetrics(t *testing.T) {
	metricsAddr := freeAddr(t, "tcp")
	receiverAddr := freeAddr(t, "udp")

	opts := &globalOptions{metricsAddr: metricsAddr}
	cmd := newReceiveCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--addr", receiverAddr, "--count", "2"})

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	require.Eventually(t, func() bool {
		_, err := scrape(metricsAddr)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	s, err := transport.NewSocketInterface(receiverAddr)
	require.NoError(t, err)
	defer s.Close()

	payload := []byte(`{"assetsFolder":"/exports","data":[]}`)
	require.NoError(t, s.Send(payload))

	require.Eventually(t, func() bool {
		body, err := scrape(metricsAddr)
		return err == nil && strings.Contains(body, "porter_receiver_payloads_total")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Send(payload))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("receive did not exit after two manifests")
	}
	require.Contains(t, out.String(), "manifest 1: 0 record(s) under /exports")

	require.Eventually(t, func() bool {
		_, err := scrape(metricsAddr)
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReceive_MetricsAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	opts := &globalOptions{metricsAddr: ln.Addr().String()}
	cmd := newReceiveCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--addr", freeAddr(t, "udp")})
	require.Error(t, cmd.Execute())
}
