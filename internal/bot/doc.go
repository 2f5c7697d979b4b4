// Package bot — склейка вокруг gateway и extension: держит сессию Discord,
// один раз после READY загружает расширения из каталога cmds и раздаёт им
// сообщения из чата.
//
// Бот:
//   - подключается через Session (gateway.Client) с ограниченным числом попыток;
//   - на первом READY сканирует cmds (повторные READY после реконнекта только логируются);
//   - разбирает сообщения с префиксом (по умолчанию "!") с поддержкой кавычек
//     и key=value аргументов;
//   - ведёт кулдауны по пользователю и команде;
//   - запускает периодические задачи расширений;
//   - отвечает на встроенные !help и !extensions.
//
// Всё, что трогает расширения (setup, обработчики, слушатели, задачи),
// выполняется в одной горутине цикла Run. Колбэки discordgo только кладут
// работу в очередь.
//
// Жизненный цикл:
//
//	NOT_CONNECTED -> HANDSHAKING -> READY -> RUNNING -> (DISCONNECTED | TERMINATED)
//
// Пример:
//
//	b := bot.New(cfg, client, loader, log)
//	if err := b.Run(ctx); err != nil { return err }
package bot
