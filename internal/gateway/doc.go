// Package gateway — тонкая обёртка над сессией discordgo.
//
// Сам протокол (websocket, heartbeat, rate limit) живёт в discordgo, здесь только:
//   - создание сессии с нужными intents и своим websocket.Dialer;
//   - первичное подключение с ограниченным числом попыток и backoff;
//   - собственный цикл переподключения после обрыва (автоматический реконнект
//     библиотеки выключен), фатальные коды закрытия завершают работу;
//   - перевод событий discordgo в простые структуры Ready/Message.
//
// События (колбэки поля структуры):
//   - OnConnecting, OnReady, OnMessage, OnDisconnected, OnError.
//
// Пример:
//
//	c, err := gateway.New(token, discordgo.IntentsAll, gateway.Options{}, log)
//	if err != nil { return err }
//	c.OnReady = func(r gateway.Ready) { log.Info("ready", "user", r.Username) }
//	if err := c.Connect(ctx); err != nil { return err }
//	defer c.Disconnect()
//
//	select {
//	case <-ctx.Done():
//	case err := <-c.Fatal():
//		return err
//	}
package gateway
