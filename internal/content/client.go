package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Client реализует доступ к HTTP API банка вопросов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт нового клиента банка вопросов по базовому адресу baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Courses возвращает список курсов.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.getJSON(ctx, "/courses", nil, &courses); err != nil {
		return nil, err
	}

	return courses, nil
}

// Units возвращает разделы курса courseID.
func (c *Client) Units(ctx context.Context, courseID int) ([]Unit, error) {
	var units []Unit
	endpoint := fmt.Sprintf("/courses/%d/units", courseID)
	if err := c.getJSON(ctx, endpoint, nil, &units); err != nil {
		return nil, err
	}

	return units, nil
}

// Lesson возвращает урок lessonID.
func (c *Client) Lesson(ctx context.Context, lessonID int) (*Lesson, error) {
	var lesson Lesson
	endpoint := fmt.Sprintf("/lessons/%d", lessonID)
	if err := c.getJSON(ctx, endpoint, nil, &lesson); err != nil {
		return nil, err
	}

	return &lesson, nil
}

// Questions возвращает вопросы раздела unitID, не больше limit штук.
// Вопросы в неизвестном формате пропускаются с предупреждением в лог.
func (c *Client) Questions(ctx context.Context, unitID int, limit int) ([]Question, error) {
	var raw []apiQuestion

	endpoint := fmt.Sprintf("/units/%d/questions", unitID)
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	if err := c.getJSON(ctx, endpoint, params, &raw); err != nil {
		return nil, err
	}

	questions := make([]Question, 0, len(raw))
	for _, q := range raw {
		question, err := q.transform()
		if err != nil {
			slog.Warn("skipping malformed question", "question_id", q.id(), "err", err)
			continue
		}

		questions = append(questions, question)
		if limit > 0 && len(questions) == limit {
			break
		}
	}

	return questions, nil
}

// getJSON выполняет GET запрос к API и декодирует JSON ответ в out.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return fmt.Errorf("%w: %s", ErrTimeout, reqURL)
		}

		return fmt.Errorf("content api request failed for %s: %w", reqURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status code %d for %s", resp.StatusCode, reqURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body from %s: %w", reqURL, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", reqURL, err)
	}

	return nil
}
