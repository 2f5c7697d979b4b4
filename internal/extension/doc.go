// Package extension — загрузка расширений с командами из каталога cmds.
//
// Каждый файл каталога с известным расширением (по умолчанию .lua) становится
// расширением с именем файла без суффикса. Файл __init__ пропускается всегда.
//
// Контракт расширения явный: Extension.Setup регистрирует команды, слушателей
// сообщений и периодические задачи через Registrar. Для Lua это глобальная
// функция setup(bot); её отсутствие — ошибка загрузки, а не паника.
//
// Сканирование выполняется один раз (после READY). Упавшее расширение
// логируется, его регистрации откатываются, остальные продолжают работать.
// Итог — Report с числом загруженных и упавших.
//
// Пример:
//
//	l := extension.NewLoader(cfg.CommandsDir, log, extension.WithStore(kv))
//	defer l.Close()
//
//	rep, err := l.LoadAll(ctx, host)
//	if err != nil { return err }
//	log.Info("extensions", "loaded", rep.Loaded(), "failed", rep.Failed())
//
// Lua API (внутри setup и обработчиков):
//
//	bot.command{ name = "ping", description = "...", usage = "!ping",
//	             cooldown = 5, handler = function(ctx) ctx.reply("pong") end }
//	bot.on("message", function(ctx) ... end)
//	bot.every("tick", 60, function() ... end)
//	bot.send(bot.channel_id, "text")
//	storage.get(key) / storage.set(key, value) / storage.delete(key)
//	log("text")
//
// ctx в обработчике: args, options, command, author, author_id, channel_id,
// content, reply(text). Строка, возвращённая обработчиком, уходит ответом.
package extension
