package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/jarvis/internal/collaborator/memory"
	"github.com/fyrsmithlabs/jarvis/internal/config"
)

func TestInitDependencies_Defaults(t *testing.T) {
	cfg := config.Default()

	deps, err := initDependencies(cfg, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close()

	assert.IsType(t, &memory.Store{}, deps.finance)
	assert.Nil(t, deps.natsConn)
	assert.Equal(t, map[string]bool{"openai": false, "gemini": false}, deps.classifier.Providers())
}

func TestInitClassifier_GeminiOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = "test-key"

	c, err := initClassifier(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"openai": false, "gemini": true}, c.Providers())
}

func TestMainIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	os.Setenv("SERVER_HTTP_PORT", "8084")
	defer os.Unsetenv("SERVER_HTTP_PORT")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	time.Sleep(200 * time.Millisecond)

	resp, err := http.Get("http://localhost:8084/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}
