package constant

const (
	EMOJI_BICEPS       = "\U0001F4AA"   //💪
	EMOJI_ROBOT        = "\U0001F916"   //🤖
	EMOJI_PALETTE      = "\U0001F3A8"   //🎨
	EMOJI_CAMERA       = "\U0001F4F7"   //📷
	EMOJI_MEMO         = "\U0001F4DD"   //📝
	EMOJI_LIGHT_BULB   = "\U0001F4A1"   //💡
	EMOJI_GEAR         = "\U00002699"   //⚙
	EMOJI_STAR         = "\U00002B50"   //⭐
	EMOJI_CRYING_FACE  = "\U0001F622"   //😢
	EMOJI_BUTTON_START = "\U000025B6  " // ▶
	EMOJI_BUTTON_END   = "  \U000025C0" // ◀

	BUTTON_TEXT_CHAT           = EMOJI_BUTTON_START + "Общение с ИИ" + EMOJI_BUTTON_END
	BUTTON_TEXT_GEN_IMAGE      = EMOJI_BUTTON_START + "Сгенерируй изображение" + EMOJI_BUTTON_END
	BUTTON_TEXT_DESCRIBE_PHOTO = EMOJI_BUTTON_START + "Опиши фотографию" + EMOJI_BUTTON_END
	BUTTON_TEXT_FEEDBACK       = EMOJI_BUTTON_START + "Оставить отзыв" + EMOJI_BUTTON_END
	BUTTON_TEXT_SUGGEST        = EMOJI_BUTTON_START + "Предложить улучшение" + EMOJI_BUTTON_END
	BUTTON_TEXT_SETTINGS       = EMOJI_BUTTON_START + "Настройки ответа" + EMOJI_BUTTON_END
	BUTTON_TEXT_PRINT_MENU     = EMOJI_BUTTON_START + "Покажи главное меню" + EMOJI_BUTTON_END

	BUTTON_TEXT_ANSWER_TEXT  = "Отвечай текстом"
	BUTTON_TEXT_ANSWER_VOICE = "Отвечай голосом"
	BUTTON_TEXT_VOICE_AHMAD  = "Голос Ahmad"
	BUTTON_TEXT_VOICE_AMIRA  = "Голос Amira"
	BUTTON_TEXT_VOICE_KHALID = "Голос Khalid"

	BUTTON_TEXT_CANCEL       = "Отмена"
	BUTTON_TEXT_SKIP_COMMENT = "Пропустить"

	// Цели отзыва — колонка model в таблице feedbacks.
	TARGET_CHAT       = "Общение с ИИ"
	TARGET_IMAGE_GEN  = "Генерация изображений"
	TARGET_PHOTO_DESC = "Описание фото"
	TARGET_SPEECH     = "Распознавание речи"

	// Текст комментария, когда пользователь пропустил этот шаг.
	NO_COMMENT = "без комментария"
)
