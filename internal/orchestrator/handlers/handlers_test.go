package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/orchestrator/dto"
	"github.com/aditya1513/casting-ai-sub015/internal/trigger"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// mockService is a simple mock implementation of Service
type mockService struct {
	startFunc   func(ctx context.Context) error
	stopFunc    func(ctx context.Context) error
	running     bool
	statuses    map[v1.AgentID]v1.AgentStatus
	metrics     map[v1.AgentID]v1.AgentMetrics
	summary     v1.HealthSummary
	assignFunc  func(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult
	executeFunc func(ctx context.Context, name string, params map[string]interface{}) (string, error)
	triggers    []v1.AutomationTrigger
	enabled     []string
	disabled    []string
	report      *v1.ProgressReport
}

var _ Service = (*mockService)(nil)

func (m *mockService) Start(ctx context.Context) error {
	if m.startFunc != nil {
		return m.startFunc(ctx)
	}
	m.running = true
	return nil
}

func (m *mockService) Stop(ctx context.Context) error {
	if m.stopFunc != nil {
		return m.stopFunc(ctx)
	}
	m.running = false
	return nil
}

func (m *mockService) Running() bool { return m.running }

func (m *mockService) GetAgentStatus(id v1.AgentID) (v1.AgentStatus, bool) {
	status, ok := m.statuses[id]
	return status, ok
}

func (m *mockService) GetAllStatuses() map[v1.AgentID]v1.AgentStatus { return m.statuses }

func (m *mockService) GetAgentMetrics(id v1.AgentID) (v1.AgentMetrics, bool) {
	metrics, ok := m.metrics[id]
	return metrics, ok
}

func (m *mockService) GetAllMetrics() map[v1.AgentID]v1.AgentMetrics { return m.metrics }

func (m *mockService) GetHealthSummary() v1.HealthSummary { return m.summary }

func (m *mockService) AssignTask(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult {
	if m.assignFunc != nil {
		return m.assignFunc(ctx, id, task)
	}
	return v1.CommandResult{Success: true, Message: "assigned"}
}

func (m *mockService) ExecuteManualTrigger(ctx context.Context, name string, params map[string]interface{}) (string, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, name, params)
	}
	return "executed", nil
}

func (m *mockService) Triggers() []v1.AutomationTrigger { return m.triggers }

func (m *mockService) EnableTrigger(id string) bool {
	m.enabled = append(m.enabled, id)
	return true
}

func (m *mockService) DisableTrigger(id string) bool {
	m.disabled = append(m.disabled, id)
	return true
}

func (m *mockService) LatestReport() *v1.ProgressReport { return m.report }

func setupHandlers(t *testing.T) (*gin.Engine, *mockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      "error",
		Format:     "console",
		OutputPath: "stdout",
	})
	require.NoError(t, err)

	mock := &mockService{
		statuses: make(map[v1.AgentID]v1.AgentStatus),
		metrics:  make(map[v1.AgentID]v1.AgentMetrics),
	}
	router := gin.New()
	RegisterRoutes(router, mock, log)
	return router, mock
}

func performRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload["error"]
}

func TestSystemEndpoints(t *testing.T) {
	t.Run("health reports running flag and summary", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.running = true
		mock.summary = v1.HealthSummary{Healthy: 4, Unhealthy: 1, Unknown: 1}

		w := performRequest(router, http.MethodGet, "/api/v1/system/health", "")

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.SystemHealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Running)
		assert.Equal(t, 4, resp.Summary.Healthy)
		assert.Equal(t, 1, resp.Summary.Unhealthy)
		assert.Equal(t, 1, resp.Summary.Unknown)
	})

	t.Run("start brings the service up", func(t *testing.T) {
		router, mock := setupHandlers(t)

		w := performRequest(router, http.MethodPost, "/api/v1/system/start", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, mock.running)
	})

	t.Run("start failure maps to 500", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.startFunc = func(ctx context.Context) error {
			return errors.New("no monitor registered for agent \"backend\"")
		}

		w := performRequest(router, http.MethodPost, "/api/v1/system/start", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decodeError(t, w), "no monitor registered")
	})

	t.Run("stop brings the service down", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.running = true

		w := performRequest(router, http.MethodPost, "/api/v1/system/stop", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, mock.running)
	})
}

func TestAgentEndpoints(t *testing.T) {
	t.Run("lists the tracked agents in canonical order", func(t *testing.T) {
		router, _ := setupHandlers(t)

		w := performRequest(router, http.MethodGet, "/api/v1/agents", "")

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.AgentListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 6, resp.Total)
		assert.Equal(t, v1.AgentBackend, resp.Agents[0])
		assert.Equal(t, v1.AgentTesting, resp.Agents[5])
	})

	t.Run("returns a single agent status", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.statuses[v1.AgentBackend] = v1.AgentStatus{
			AgentID: v1.AgentBackend,
			State:   v1.LifecycleActive,
			Health:  v1.HealthHealthy,
		}

		w := performRequest(router, http.MethodGet, "/api/v1/agents/backend/status", "")

		require.Equal(t, http.StatusOK, w.Code)
		var status v1.AgentStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, v1.LifecycleActive, status.State)
		assert.Equal(t, v1.HealthHealthy, status.Health)
	})

	t.Run("unknown agent status is 404", func(t *testing.T) {
		router, _ := setupHandlers(t)

		w := performRequest(router, http.MethodGet, "/api/v1/agents/devops/status", "")

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decodeError(t, w), "devops")
	})

	t.Run("returns the full status table", func(t *testing.T) {
		router, mock := setupHandlers(t)
		for _, id := range v1.AllAgentIDs() {
			mock.statuses[id] = v1.AgentStatus{AgentID: id, State: v1.LifecycleActive}
		}

		w := performRequest(router, http.MethodGet, "/api/v1/status", "")

		require.Equal(t, http.StatusOK, w.Code)
		var table map[v1.AgentID]v1.AgentStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &table))
		assert.Len(t, table, 6)
	})

	t.Run("returns agent metrics", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.metrics[v1.AgentFrontend] = v1.AgentMetrics{
			AgentID:        v1.AgentFrontend,
			TasksCompleted: 7,
			SuccessRate:    0.875,
		}

		w := performRequest(router, http.MethodGet, "/api/v1/agents/frontend/metrics", "")

		require.Equal(t, http.StatusOK, w.Code)
		var metrics v1.AgentMetrics
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
		assert.Equal(t, 7, metrics.TasksCompleted)
		assert.InDelta(t, 0.875, metrics.SuccessRate, 0.0001)
	})

	t.Run("unknown agent metrics is 404", func(t *testing.T) {
		router, _ := setupHandlers(t)

		w := performRequest(router, http.MethodGet, "/api/v1/agents/nope/metrics", "")

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAssignTaskEndpoint(t *testing.T) {
	t.Run("queues a task for the agent", func(t *testing.T) {
		router, mock := setupHandlers(t)
		var gotID v1.AgentID
		var gotTask v1.Task
		mock.assignFunc = func(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult {
			gotID = id
			gotTask = task
			return v1.CommandResult{Success: true, Message: "task \"implement auth\" assigned to backend"}
		}

		body := `{"name": "implement auth", "priority": 8, "payload": {"service": "api"}}`
		w := performRequest(router, http.MethodPost, "/api/v1/agents/backend/tasks", body)

		require.Equal(t, http.StatusOK, w.Code)
		var result v1.CommandResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, v1.AgentBackend, gotID)
		assert.Equal(t, "implement auth", gotTask.Name)
		assert.Equal(t, 8, gotTask.Priority)
		assert.Equal(t, "api", gotTask.Payload["service"])
	})

	t.Run("unknown agent is 404 before binding", func(t *testing.T) {
		router, mock := setupHandlers(t)
		called := false
		mock.assignFunc = func(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult {
			called = true
			return v1.CommandResult{Success: true}
		}

		w := performRequest(router, http.MethodPost, "/api/v1/agents/devops/tasks", `{"name": "x"}`)

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, called)
	})

	t.Run("malformed payload is 400", func(t *testing.T) {
		router, _ := setupHandlers(t)

		w := performRequest(router, http.MethodPost, "/api/v1/agents/backend/tasks", `{"name": `)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid payload", decodeError(t, w))
	})

	t.Run("blank task name is 400", func(t *testing.T) {
		router, _ := setupHandlers(t)

		w := performRequest(router, http.MethodPost, "/api/v1/agents/backend/tasks", `{"name": "   "}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w), "name is required")
	})

	t.Run("out of range priority is 400", func(t *testing.T) {
		router, _ := setupHandlers(t)

		w := performRequest(router, http.MethodPost, "/api/v1/agents/backend/tasks", `{"name": "x", "priority": 11}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w), "priority")
	})

	t.Run("monitor rejection maps to 422", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.assignFunc = func(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult {
			return v1.CommandResult{Success: false, Message: "task queue is full"}
		}

		w := performRequest(router, http.MethodPost, "/api/v1/agents/backend/tasks", `{"name": "x"}`)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var result v1.CommandResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "queue is full")
	})
}

func TestReportEndpoint(t *testing.T) {
	t.Run("404 before the first report", func(t *testing.T) {
		router, _ := setupHandlers(t)

		w := performRequest(router, http.MethodGet, "/api/v1/report", "")

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decodeError(t, w), "no report")
	})

	t.Run("returns the latest report", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.report = &v1.ProgressReport{
			GeneratedAt:     time.Now().UTC(),
			OverallProgress: 41.5,
			AgentProgress:   map[v1.AgentID]float64{v1.AgentBackend: 60},
			Recommendations: []string{"Attend to 1 unhealthy agent(s)"},
		}

		w := performRequest(router, http.MethodGet, "/api/v1/report", "")

		require.Equal(t, http.StatusOK, w.Code)
		var report v1.ProgressReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.InDelta(t, 41.5, report.OverallProgress, 0.0001)
		assert.InDelta(t, 60, report.AgentProgress[v1.AgentBackend], 0.0001)
		require.Len(t, report.Recommendations, 1)
	})
}

func TestTriggerEndpoints(t *testing.T) {
	catalog := []v1.AutomationTrigger{
		{ID: "trig-1", Name: "failure_recovery_task", Type: v1.TriggerRecovery, Enabled: true},
		{ID: "trig-2", Name: "on_demand_report", Type: v1.TriggerReporting, Enabled: true},
	}

	t.Run("lists the catalog", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.triggers = catalog

		w := performRequest(router, http.MethodGet, "/api/v1/triggers", "")

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.TriggerListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Total)
		assert.Equal(t, "failure_recovery_task", resp.Triggers[0].Name)
	})

	t.Run("executes a trigger without a body", func(t *testing.T) {
		router, mock := setupHandlers(t)
		var gotName string
		mock.executeFunc = func(ctx context.Context, name string, params map[string]interface{}) (string, error) {
			gotName = name
			return "progress report generation triggered", nil
		}

		w := performRequest(router, http.MethodPost, "/api/v1/triggers/on_demand_report/execute", "")

		require.Equal(t, http.StatusOK, w.Code)
		var result v1.CommandResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, "on_demand_report", gotName)
	})

	t.Run("passes params through to the service", func(t *testing.T) {
		router, mock := setupHandlers(t)
		var gotParams map[string]interface{}
		mock.executeFunc = func(ctx context.Context, name string, params map[string]interface{}) (string, error) {
			gotParams = params
			return "ok", nil
		}

		body := `{"params": {"agent_id": "backend"}}`
		w := performRequest(router, http.MethodPost, "/api/v1/triggers/auto_task_reassignment/execute", body)

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, gotParams)
		assert.Equal(t, "backend", gotParams["agent_id"])
	})

	t.Run("unknown trigger execution is 404", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.executeFunc = func(ctx context.Context, name string, params map[string]interface{}) (string, error) {
			return "", fmt.Errorf("%w: %q", trigger.ErrTriggerNotFound, name)
		}

		w := performRequest(router, http.MethodPost, "/api/v1/triggers/bogus/execute", "")

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decodeError(t, w), "bogus")
	})

	t.Run("disabled trigger execution is 422", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.executeFunc = func(ctx context.Context, name string, params map[string]interface{}) (string, error) {
			return "", fmt.Errorf("%w: %q", trigger.ErrTriggerDisabled, name)
		}

		w := performRequest(router, http.MethodPost, "/api/v1/triggers/on_demand_report/execute", "")

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("stopped processor is 503", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.executeFunc = func(ctx context.Context, name string, params map[string]interface{}) (string, error) {
			return "", trigger.ErrNotRunning
		}

		w := performRequest(router, http.MethodPost, "/api/v1/triggers/on_demand_report/execute", "")

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("action failure is 500", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.executeFunc = func(ctx context.Context, name string, params map[string]interface{}) (string, error) {
			return "", errors.New("trigger \"auto_task_reassignment\" failed: task queue is full")
		}

		w := performRequest(router, http.MethodPost, "/api/v1/triggers/auto_task_reassignment/execute", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("enable resolves a trigger by name", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.triggers = catalog

		w := performRequest(router, http.MethodPost, "/api/v1/triggers/on_demand_report/enable", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, mock.enabled, 1)
		assert.Equal(t, "trig-2", mock.enabled[0])
		var result v1.CommandResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, `trigger "on_demand_report" enabled`, result.Message)
	})

	t.Run("disable resolves a trigger by id", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.triggers = catalog

		w := performRequest(router, http.MethodPost, "/api/v1/triggers/trig-1/disable", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, mock.disabled, 1)
		assert.Equal(t, "trig-1", mock.disabled[0])
		var result v1.CommandResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, `trigger "failure_recovery_task" disabled`, result.Message)
	})

	t.Run("enable of an unknown trigger is 404", func(t *testing.T) {
		router, mock := setupHandlers(t)
		mock.triggers = catalog

		w := performRequest(router, http.MethodPost, "/api/v1/triggers/bogus/enable", "")

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, mock.enabled)
	})
}
