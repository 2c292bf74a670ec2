package format

import "github.com/shuffleval/shuffleval/internal/models"

// promptText holds the language-specific fragments shared by all prompt
// encodings.
type promptText struct {
	Intro            string
	Instruction      string
	InstructionThink string
	AnswerPrefix     string
	ChoiceLabel      string
}

var templates = map[string]promptText{
	models.LanguageEN: {
		Intro:            "Answer the following multiple choice question.",
		Instruction:      "The last line of your response should be of the following format: 'Answer: $LETTER' (without quotes) where LETTER is one of ABCD.",
		InstructionThink: "Think step by step before answering.",
		AnswerPrefix:     "Answer:",
		ChoiceLabel:      "choices",
	},
	models.LanguageFR: {
		Intro:            "Répondez à la question à choix multiples suivante.",
		Instruction:      "La dernière ligne de votre réponse doit être au format suivant : « Réponse : $LETTRE » (sans les guillemets) où LETTRE est l'une des lettres ABCD.",
		InstructionThink: "Réfléchissez étape par étape avant de répondre.",
		AnswerPrefix:     "Réponse:",
		ChoiceLabel:      "choix",
	},
}

func textFor(lang string) (promptText, error) {
	t, ok := templates[lang]
	if !ok {
		return promptText{}, models.NewConfigError("no prompt templates for language %q", lang)
	}
	return t, nil
}
