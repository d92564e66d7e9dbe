package generation

import "fmt"

func bodyPrompt(topic string) string {
	return fmt.Sprintf(
		"You are an expert copywriter. Write a broadcast-channel post of at most "+
			"1000 characters (spaces included) on the topic below. Keep it tight: "+
			"cut filler words, lead with the point, use short paragraphs, speak like "+
			"a friend, and end with a call to action. Stay within the character limit.\n\n"+
			"Topic: %s", topic)
}

func titlePrompt(body string) string {
	return fmt.Sprintf(
		"You are an expert in viral headlines. Write one title of at most 12 words "+
			"for the post below. Put the main idea first, make it emotional or "+
			"intriguing, and keep the language conversational. Reply with the title "+
			"only, no quotes.\n\n"+
			"Post text: %s", body)
}

func tagsPrompt(body string) string {
	return fmt.Sprintf(
		"You are an SMM specialist. Produce 5 to 10 short tags for the post below, "+
			"each at most 3 words, all on a single line separated by spaces "+
			"(example: productivity lifehack focus). Reflect the key topics of the "+
			"post; reply with the tags only.\n\n"+
			"Post text: %s", body)
}
