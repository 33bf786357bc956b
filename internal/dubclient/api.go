package dubclient

import (
	"errors"
	"fmt"
)

// ========================= high-level API =========================

// Все действия одинаковы: ошибка отправки возвращается сразу, результат
// приходит в done (из горутины чтения). done может быть nil.

func (c *Client) action(name string, params map[string]any, done func(error)) error {
	var cb func(Response)
	if done != nil {
		cb = func(r Response) {
			if r.OK {
				done(nil)
				return
			}
			msg := r.Err
			if msg == "" {
				msg = "rejected"
			}
			done(fmt.Errorf("%s: %w", name, errors.New(msg)))
		}
	}
	return c.request(name, params, cb)
}

func (c *Client) Skip(done func(error)) error {
	return c.action("skip", nil, done)
}

func (c *Client) Updub(done func(error)) error {
	return c.action("dub", map[string]any{"type": "updub"}, done)
}

func (c *Client) Downdub(done func(error)) error {
	return c.action("dub", map[string]any{"type": "downdub"}, done)
}

func (c *Client) Grab(done func(error)) error {
	return c.action("grab", nil, done)
}

func (c *Client) JoinQueue(done func(error)) error {
	return c.action("queue-join", nil, done)
}

func (c *Client) LeaveQueue(done func(error)) error {
	return c.action("queue-leave", nil, done)
}

// MoveDJ ставит пользователя на позицию в очереди (с нуля).
func (c *Client) MoveDJ(userID string, position int, done func(error)) error {
	return c.action("queue-move", map[string]any{"userid": userID, "position": position}, done)
}

func (c *Client) SendChat(message string, done func(error)) error {
	return c.action("chat", map[string]any{"message": message}, done)
}

func (c *Client) DeleteChat(chatID string, done func(error)) error {
	return c.action("chat-delete", map[string]any{"chatid": chatID}, done)
}
