// Package bot — «склейка» вокруг dubclient, translate и room: фасад бота
// комнаты. Бот:
//   - принимает сырые события вендора, переводит их во внутреннюю модель и
//     раздаёт слушателям в порядке регистрации;
//   - перед любым слушателем применяет событие к трекеру комнаты, так что
//     слушатели всегда видят уже обновлённый снимок;
//   - выполняет действия (skip, woot, meh, grab, очередь, чат) с проверкой
//     предусловий и необязательным колбэком func(ok bool);
//   - переподключается сам при обрыве, без ограничения числа попыток.
//
// Все обработчики, колбэки действий и изменения снимка выполняются в одной
// горутине (Run). Другие горутины (HTTP, хоткеи) передают работу через Do
// или Query.
//
// Жизненный цикл:
//   - Создать бота через New(transport, opts).
//   - Start(ctx) — подключение, ожидание входа в комнату, загрузка снимка.
//   - Зарегистрировать слушателей (On) — обычно через plugin.Load.
//   - Run(ctx) — цикл событий до отмены контекста.
//
// Пример:
//
//	b := bot.New(client, bot.Options{Room: "lounge"})
//	if err := b.Start(ctx); err != nil { log.Fatal(err) }
//	b.On(event.NameUserJoin, func(st *bot.State, ev event.Event) {
//	    st.Bot.SendChat("welcome, %s", ev.(*event.UserJoin).User.Username)
//	})
//	_ = b.Run(ctx)
package bot
