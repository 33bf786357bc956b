package bot

// onDisconnected выполняется в цикле. Обрыв, который мы не просили, даёт
// фоновые попытки Connect в ту же комнату без лимита и без backoff.
func (b *Bot) onDisconnected() {
	if b.stopping.Load() {
		return
	}
	if !b.reconnecting.CompareAndSwap(false, true) {
		return
	}
	b.log.Warn("disconnected, reconnecting", "delay", b.opts.ReconnectDelay)
	go b.reconnect()
}

func (b *Bot) reconnect() {
	for attempt := 1; ; attempt++ {
		select {
		case <-b.done:
			b.reconnecting.Store(false)
			return
		case <-b.clock.After(b.opts.ReconnectDelay):
		}
		if b.ctx.Err() != nil {
			b.reconnecting.Store(false)
			return
		}

		if err := b.tr.Connect(b.ctx, b.opts.Room); err != nil {
			b.log.Warn("reconnect failed", "attempt", attempt, "err", err)
			continue
		}
		// связь есть: новый обрыв во время загрузки снимка запускает
		// следующий цикл переподключения
		b.reconnecting.Store(false)
		b.log.Info("reconnected", "attempts", attempt)

		// за время обрыва комната могла измениться
		st, err := b.fetchState(b.ctx)
		if err != nil {
			b.log.Warn("room state after reconnect", "err", err)
			return
		}
		b.submit(func() { b.tracker.Resync(st) })
		return
	}
}
