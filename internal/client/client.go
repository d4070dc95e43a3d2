package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

const apiURL = "https://api.telegram.org/bot%s/%s"

// HTTPClient реализует Client через HTTP API Telegram.
type HTTPClient struct {
	token      string
	httpClient *http.Client
}

// NewHTTPClient создаёт нового HTTP клиента Telegram по переданному токену
func NewHTTPClient(token string) *HTTPClient {
	return &HTTPClient{
		token:      token,
		httpClient: &http.Client{},
	}
}

// SendMessage отправляет сообщение text в чат chatID.
// Возвращает указатель на структуру Message в случае успеха.
func (c *HTTPClient) SendMessage(
	chatID int64,
	text string,
	opts *SendOptions,
) (*Message, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	applyOptions(params, opts)

	ctx, cancelFunc := context.WithTimeout(context.Background(), timeoutSend)
	defer cancelFunc()

	rawResp, err := c.doRequest(ctx, "sendMessage", params)
	if err != nil {
		return nil, err
	}

	var message Message
	if err = json.Unmarshal(rawResp, &message); err != nil {
		return nil, err
	}

	return &message, nil
}

// SendPhoto отправляет фото по ссылке photoURL с подписью caption в чат chatID.
// Возвращает указатель на структуру Message в случае успеха.
func (c *HTTPClient) SendPhoto(
	chatID int64,
	photoURL string,
	caption string,
	opts *SendOptions,
) (*Message, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"photo":   photoURL,
	}
	if caption != "" {
		params["caption"] = caption
	}
	applyOptions(params, opts)

	ctx, cancelFunc := context.WithTimeout(context.Background(), timeoutSend)
	defer cancelFunc()

	rawResp, err := c.doRequest(ctx, "sendPhoto", params)
	if err != nil {
		return nil, err
	}

	var message Message
	if err = json.Unmarshal(rawResp, &message); err != nil {
		return nil, err
	}

	return &message, nil
}

// EditMessage изменяет текст сообщения messageID на text в чате chatID.
// Возвращает nil в случае успеха.
func (c *HTTPClient) EditMessage(
	chatID int64,
	messageID int,
	text string,
	opts *SendOptions,
) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"message_id": messageID,
	}
	applyOptions(params, opts)

	ctx, cancelFunc := context.WithTimeout(context.Background(), timeoutSend)
	defer cancelFunc()

	_, err := c.doRequest(ctx, "editMessageText", params)
	if err != nil {
		return err
	}

	return nil
}

// EditMessageCaption изменяет подпись сообщения с фото messageID в чате chatID.
// Возвращает nil в случае успеха.
func (c *HTTPClient) EditMessageCaption(
	chatID int64,
	messageID int,
	caption string,
	opts *SendOptions,
) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"caption":    caption,
		"message_id": messageID,
	}
	applyOptions(params, opts)

	ctx, cancelFunc := context.WithTimeout(context.Background(), timeoutSend)
	defer cancelFunc()

	_, err := c.doRequest(ctx, "editMessageCaption", params)
	if err != nil {
		return err
	}

	return nil
}

// DeleteMessage удаляет сообщение messageID в чате chatID.
// Возращает nil в случае успеха.
func (c *HTTPClient) DeleteMessage(chatID int64, messageID int) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), timeoutSend)
	defer cancelFunc()

	_, err := c.doRequest(ctx, "deleteMessage", params)
	if err != nil {
		return err
	}

	return nil
}

// AnswerCallback отвечает уведомлением в верхней части экрана чата (см. документацию
// telegram api) на callback query с идентификатором callbackID.
// Возращает nil в случае успеха.
func (c *HTTPClient) AnswerCallback(callbackID string, text string) error {
	params := map[string]interface{}{
		"callback_query_id": callbackID,
	}
	if text != "" {
		params["text"] = text
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), timeoutSend)
	defer cancelFunc()

	_, err := c.doRequest(ctx, "answerCallbackQuery", params)
	if err != nil {
		return err
	}

	return nil
}

// GetUpdates получает обновления.
// Если новых обновлений нет, ждёт до timeout секунд.
// Возвращает слайс Update.
// Для продолжения обработки нужно передать offset = lastUpdateID + 1.
func (c *HTTPClient) GetUpdates(ctx context.Context, offset int, timeout int) ([]Update, error) {
	params := map[string]interface{}{
		"offset":  offset,
		"timeout": timeout,
	}

	rawResp, err := c.doRequest(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err = json.Unmarshal(rawResp, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// SendDocument отправляет файл с названием fileName и содержимым data в чат chatID как документ.
// Возвращает nil в случае успеха.
func (c *HTTPClient) SendDocument(
	chatID int64,
	fileName string,
	data []byte,
) error {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10))
	if err != nil {
		return fmt.Errorf("failed to add chat_id field to multipart form: %w", err)
	}

	multipartWriter, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err = multipartWriter.Write(data); err != nil {
		return fmt.Errorf("failed to write data to multipart form: %w", err)
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	url := fmt.Sprintf(apiURL, c.token, "sendDocument")

	ctx, cancelFunc := context.WithTimeout(context.Background(), timeoutUpload)
	defer cancelFunc()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to do post request for url %s: %w", url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body in SendDocument: %w", err)
	}

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"description"`
	}
	if err = json.Unmarshal(respData, &result); err != nil {
		return err
	}

	if !result.OK {
		return fmt.Errorf("client api error: %s", result.Error)
	}

	return nil
}

// applyOptions добавляет непустые опции отправки в параметры запроса.
func applyOptions(params map[string]interface{}, opts *SendOptions) {
	if opts == nil {
		return
	}

	if opts.ParseMode != "" {
		params["parse_mode"] = opts.ParseMode
	}

	if opts.ReplyMarkup != nil {
		params["reply_markup"] = opts.ReplyMarkup
	}
}

// doRequest выполняет запрос к Telegram API.
// Возвращает результат запроса в случае успеха.
func (c *HTTPClient) doRequest(
	ctx context.Context,
	method string,
	params map[string]interface{},
) (json.RawMessage, error) {
	url := fmt.Sprintf(apiURL, c.token, method)

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result struct {
		OK     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
		Error  string          `json:"description"`
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	if !result.OK {
		return nil, fmt.Errorf("client api error: %s", result.Error)
	}

	return result.Result, nil
}
