package generator

type pattern struct {
	name      string
	templates []string
}

type wordPools struct {
	adjectives []string
	verbs      []string
	nouns      []string
	adverbs    []string
	emotions   []string
}

var enPatterns = []pattern{
	{"minimalism", []string{
		"Think {adj}", "{verb} differently", "Be {adj}", "{noun}. {emotion}.",
		"Just {verb}", "Your {noun}", "Time to {verb}", "{noun} without limits",
		"Live {adv}", "More than {noun}",
	}},
	{"paradox", []string{
		"Less is {adj}", "{verb} to stop", "Silence speaks {adv}",
		"Stop to {verb}", "{noun} without {noun}", "Everything and nothing",
		"Small is the new {adj}",
	}},
	{"imperative", []string{
		"{verb} your way", "Don't {verb}, {verb}", "{verb} more",
		"{verb} now", "{verb} boldly", "Open your {noun}", "Start to {verb}",
		"Be {adj}, {verb} {adv}",
	}},
	{"contrast", []string{
		"Quiet {noun}, loud {noun}", "Slow {noun}. Fast {emotion}.",
		"Small {noun}, {adj} {noun}", "Old {noun}, new {noun}",
	}},
	{"question", []string{
		"Why not {verb}", "What if {noun} could {verb}", "Ready to {verb}",
		"Who said {noun} was {adj}",
	}},
	{"twist", []string{
		"{verb} the {noun}, keep the {emotion}", "Made for {noun}, built for {emotion}",
		"Come for the {noun}, stay for the {emotion}", "{adj} mornings, {adj} nights",
	}},
}

var enWords = wordPools{
	adjectives: []string{
		"free", "bright", "bold", "real", "new", "strong", "simple", "honest",
		"alive", "clear", "open", "warm", "true", "quiet", "wild", "curious",
	},
	verbs: []string{
		"live", "think", "make", "create", "dream", "believe", "go", "move",
		"change", "choose", "love", "feel", "explore", "try", "dare", "win",
	},
	nouns: []string{
		"world", "life", "path", "choice", "freedom", "power", "dream", "time",
		"future", "moment", "style", "energy", "heart", "motion", "coffee", "city",
	},
	adverbs: []string{
		"boldly", "brightly", "simply", "freely", "easily", "honestly", "openly", "warmly",
	},
	emotions: []string{
		"Love", "Passion", "Freedom", "Joy", "Wonder", "Energy", "Calm", "Hope",
	},
}

var ruPatterns = []pattern{
	{"minimalism", []string{
		"Думай {adj}", "{verb} иначе", "Будь {adj}", "{noun}. {emotion}",
		"Просто {verb}", "Твой {noun}", "Время {verb}", "{noun} без границ",
		"Живи {adv}", "Больше чем {noun}",
	}},
	{"paradox", []string{
		"Невозможное {adj}", "Меньше значит {adj}", "{verb} не {verb}",
		"Тишина говорит {adv}", "Остановись, чтобы {verb}", "{noun} без {noun}",
		"Всё и ничего",
	}},
	{"imperative", []string{
		"{verb} свой путь", "Не {verb}, {verb}", "{verb} больше", "{verb} сейчас",
		"{verb} смелее", "Открой {noun}", "Начни {verb}", "Будь {adj}, {verb} {adv}",
	}},
	{"question", []string{
		"Почему бы не {verb}", "Готов {verb}", "Кто сказал, что {noun} это просто",
	}},
}

var ruWords = wordPools{
	adjectives: []string{
		"свободный", "яркий", "смелый", "настоящий", "новый", "сильный",
		"простой", "искренний", "живой", "чистый", "честный", "открытый",
	},
	verbs: []string{
		"живи", "думай", "делай", "твори", "мечтай", "верь", "иди", "меняй",
		"выбирай", "люби", "чувствуй", "пробуй", "дерзай",
	},
	nouns: []string{
		"мир", "жизнь", "путь", "выбор", "свобода", "сила", "мечта", "время",
		"будущее", "момент", "стиль", "энергия", "сердце", "движение",
	},
	adverbs: []string{
		"ярко", "смело", "искренне", "просто", "свободно", "легко", "честно", "открыто",
	},
	emotions: []string{
		"Любовь", "Страсть", "Свобода", "Радость", "Сила", "Мечта", "Энергия",
	},
}
