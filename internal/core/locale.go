package core

import "healthmate/pkg"

// Strings is the set of localized texts the assistant itself produces.
type Strings struct {
	Welcome            string
	Error              string
	SymptomKeyword     string
	Urgency            string
	LifestyleTitle     string
	HospitalsFound     string
	HospitalFetchError string
	FileNotSupported   string
}

var locales = map[pkg.Language]Strings{
	pkg.LangEnglish: {
		Welcome:            "Hello! I'm HealthMate AI 🩺. How can I assist you today? You can describe your symptoms, upload a medical report, or ask for health advice.",
		Error:              "Sorry, something went wrong. Please try again.",
		SymptomKeyword:     "symptom",
		Urgency:            "Urgency",
		LifestyleTitle:     "Lifestyle & Prevention Tips",
		HospitalsFound:     "Certainly! Here are some nearby hospitals I found for you:",
		HospitalFetchError: "I couldn’t fetch nearby hospitals right now. 🚑 If this is an emergency, please call **108** immediately.",
		FileNotSupported:   "I can only read health-related reports for now 😊.",
	},
	pkg.LangHindi: {
		Welcome:            "नमस्ते! मैं हेल्थमेट एआई 🩺 हूँ। मैं आज आपकी कैसे सहायता कर सकता हूँ? आप अपने लक्षण बता सकते हैं, मेडिकल रिपोर्ट अपलोड कर सकते हैं, या स्वास्थ्य सलाह मांग सकते हैं।",
		Error:              "क्षमा करें, कुछ गलत हो गया। कृपया पुनः प्रयास करें।",
		SymptomKeyword:     "लक्षण",
		Urgency:            "तत्काल आवश्यकता",
		LifestyleTitle:     "जीवनशैली और रोकथाम के उपाय",
		HospitalsFound:     "ज़रूर! यहाँ आपके लिए आस-पास के कुछ अस्पताल हैं:",
		HospitalFetchError: "मैं अभी आस-पास के अस्पताल नहीं ढूंढ सका। 🚑 यदि यह एक आपात स्थिति है, तो कृपया तुरंत **108** पर कॉल करें।",
		FileNotSupported:   "मैं अभी के लिए केवल स्वास्थ्य-संबंधी रिपोर्ट पढ़ सकता हूँ 😊।",
	},
}

// StringsFor returns the string table for lang, falling back to English.
func StringsFor(lang pkg.Language) Strings {
	if s, ok := locales[lang]; ok {
		return s
	}
	return locales[pkg.LangEnglish]
}
