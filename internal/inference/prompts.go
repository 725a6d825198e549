package inference

import "fmt"

func buildSummaryPrompt(text string) string {
	return "You are a medical assistant for doctors. " +
		"Summarize the following medical/anatomy content as bullet points. " +
		"Focus on: key anatomical structures, function, and clinical notes.\n\n" +
		text
}

func buildTranslationPrompt(text, language, domainContext string) string {
	return fmt.Sprintf("Translate the following %s into %s. "+
		"Keep medical terminology accurate and use a professional tone. "+
		"Return only the translation.\n\n%s", domainContext, language, text)
}

func buildDetailsPrompt(summary, fullText string) string {
	return "You are an expert medical educator. Using the PDF content and its summary, " +
		"write a detailed explanation for doctors (around 1000 words). " +
		"Include sections: Anatomy, Physiology, Common Pathologies, Diagnostics, " +
		"and Clinical Notes.\n\n" +
		"SUMMARY:\n" + summary + "\n\nFULL TEXT:\n" + fullText
}

func buildReferencesPrompt(summary string) string {
	return "Based on the following summary of a human organ/body part, " +
		"list 5 to 8 reputable reference links (guidelines, textbooks, " +
		"or review articles). Prefer major medical sites and journals. " +
		"Return them as a simple numbered list with plain URLs.\n\n" +
		summary
}

const classifyPrompt = "This is a medical image from a PDF. " +
	"Identify the main human organ or body part. " +
	"Also list key anatomical structures visible (max 10). " +
	"Respond ONLY as pure JSON (no markdown, no code block) " +
	"exactly in this format:\n" +
	`{"organ": "heart", "labels": ["left ventricle", "right ventricle"]}`
