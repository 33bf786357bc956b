// Package dubclient реализует клиент вендора комнаты: WebSocket-поток
// событий плюс REST-запрос снимка комнаты.
//
// Протокол сокета (JSON, текстовые кадры):
//
//   - входящее событие: {"type": "chat-message", "data": {...}}, либо массив
//     таких объектов в одном кадре;
//   - ответ на запрос: {"type": "response", "id": "...", "ok": true,
//     "error": "...", "data": {...}};
//   - исходящий запрос: {"id": "<uuid>", "action": "...", "params": {...}}.
//
// Connect возвращается только после подтверждения входа в комнату, поэтому
// после него можно сразу грузить снимок и подписываться. Сам клиент не
// реконнектится: при обрыве он сбрасывает ожидающие колбэки с ошибкой и
// вызывает OnDisconnected, решение о повторном Connect принимает владелец.
//
// События (поля Hooks):
//   - OnConnecting, OnConnected, OnEvent, OnDisconnected, OnError.
//
// Хуки и колбэки действий вызываются из горутины чтения, долго в них
// сидеть нельзя.
//
// Пример:
//
//	c := dubclient.New(dubclient.Config{
//	    APIURL:    "https://api.example.net",
//	    SocketURL: "wss://ws.example.net/socket",
//	    Username:  "bot",
//	    Password:  "secret",
//	}, nil)
//	c.SetHooks(dubclient.Hooks{OnEvent: func(ev dubclient.RawEvent) { fmt.Println(ev.Type) }})
//	if err := c.Connect(ctx, "lounge"); err != nil { log.Fatal(err) }
//	defer c.Disconnect()
//	_ = c.SendChat("hello", nil)
package dubclient
