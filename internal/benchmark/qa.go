package benchmark

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/membench/membench/internal/llm"
	"github.com/membench/membench/internal/memory"
)

// QA runs a question-answering task set loaded from a YAML file and scores
// outputs by token overlap with the expected answer.
type QA struct {
	tasks     []Task
	system    string
	taskLimit int
	threshold float64
}

// NewQA builds the qa benchmark. Config keys: tasks_file (required), system,
// task_limit, success_threshold.
func NewQA(cfg map[string]any) (Adapter, error) {
	path := cast.ToString(cfg["tasks_file"])
	if path == "" {
		return nil, eris.New("qa: tasks_file is required")
	}

	tasks, err := LoadTasks(path)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, eris.Errorf("qa: no tasks in %s", path)
	}

	q := &QA{
		tasks:     tasks,
		system:    "Answer the question concisely.",
		threshold: 0.5,
	}
	if v, ok := cfg["system"]; ok {
		q.system = cast.ToString(v)
	}
	if v, ok := cfg["task_limit"]; ok {
		q.taskLimit = cast.ToInt(v)
	}
	if v, ok := cfg["success_threshold"]; ok {
		q.threshold = cast.ToFloat64(v)
	}
	return q, nil
}

// LoadTasks reads a YAML task set from disk.
func LoadTasks(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "qa: read tasks %s", path)
	}

	var wrapper struct {
		Tasks []Task `yaml:"tasks"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "qa: parse tasks %s", path)
	}
	return wrapper.Tasks, nil
}

func (q *QA) RunBenchmark(ctx context.Context, provider llm.Provider, mem memory.Method, cfg map[string]any) (map[string]any, error) {
	tasks := q.tasks
	if q.taskLimit > 0 && len(tasks) > q.taskLimit {
		tasks = tasks[:q.taskLimit]
	}

	info := provider.ModelInfo()
	log := zap.L().With(
		zap.String("model", info.Model),
		zap.String("provider", info.Provider),
	)

	taskResults := make([]map[string]any, 0, len(tasks))
	var totalScore float64
	succeeded := 0

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "qa: canceled")
		}

		processed := mem.Process(task.Prompt, memory.Options{})
		resp, err := provider.GenerateText(ctx, llm.GenerateRequest{
			Prompt: processed,
			System: q.system,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "qa: task %s", task.ID)
		}

		eval := q.EvaluateResult(task, resp.Content)
		totalScore += eval.Score
		if eval.Success {
			succeeded++
		}

		log.Debug("qa task scored",
			zap.String("task", task.ID),
			zap.Float64("score", eval.Score),
		)

		taskResults = append(taskResults, map[string]any{
			"task_id":    task.ID,
			"output":     resp.Content,
			"evaluation": eval,
			"usage":      resp.Usage,
		})
	}

	accuracy := float64(succeeded) / float64(len(tasks))

	return map[string]any{
		"tasks":       taskResults,
		"model_info":  info,
		"memory_info": mem.MethodInfo(),
		"metadata": map[string]any{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"config":     cfg,
			"task_count": len(tasks),
			"accuracy":   accuracy,
			"mean_score": totalScore / float64(len(tasks)),
		},
		"score":   accuracy,
		"success": true,
	}, nil
}

// EvaluateResult scores output by the fraction of expected-answer tokens that
// appear in the output, case-insensitive. Exact containment scores 1.0.
func (q *QA) EvaluateResult(task Task, output string) Evaluation {
	expected := strings.ToLower(strings.TrimSpace(task.Expected))
	got := strings.ToLower(output)

	if expected == "" {
		return Evaluation{Success: false, Score: 0, Details: map[string]any{"reason": "no ground truth"}}
	}

	var score float64
	if strings.Contains(got, expected) {
		score = 1.0
	} else {
		want := strings.Fields(expected)
		matched := 0
		for _, tok := range want {
			if strings.Contains(got, tok) {
				matched++
			}
		}
		score = float64(matched) / float64(len(want))
	}

	return Evaluation{
		Success: score >= q.threshold,
		Score:   score,
		Details: map[string]any{
			"expected":  task.Expected,
			"threshold": q.threshold,
		},
	}
}

func init() {
	Default.Register("qa", NewQA)
}
