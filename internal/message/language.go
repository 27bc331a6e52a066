package message

import (
	"fmt"
	"strings"
)

// Language is the wire code sent as `lang`. The first two values match the
// proof service's original zh/en codes.
type Language uint8

const (
	LanguageChineseSimplified  Language = 0
	LanguageEnglish            Language = 1
	LanguageChineseTraditional Language = 2
	LanguageJapanese           Language = 3
	LanguageKorean             Language = 4
	LanguageSpanish            Language = 5
	LanguageFrench             Language = 6
	LanguageGerman             Language = 7
	LanguageRussian            Language = 8
	LanguagePortuguese         Language = 9
)

// Languages lists every supported language in code order.
var Languages = []Language{
	LanguageChineseSimplified, LanguageEnglish, LanguageChineseTraditional, LanguageJapanese, LanguageKorean,
	LanguageSpanish, LanguageFrench, LanguageGerman, LanguageRussian, LanguagePortuguese,
}

// ParseLanguage accepts tags like "en", "en-US", "zh", "zh-TW", "zh-Hant", "pt-BR".
func ParseLanguage(tag string) (Language, error) {
	t := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
	switch t {
	case "zh-tw", "zh-hk", "zh-hant", "zh-mo":
		return LanguageChineseTraditional, nil
	}
	base := t
	if i := strings.IndexByte(t, '-'); i > 0 {
		base = t[:i]
	}
	switch base {
	case "zh", "chinese":
		return LanguageChineseSimplified, nil
	case "en", "english":
		return LanguageEnglish, nil
	case "ja":
		return LanguageJapanese, nil
	case "ko":
		return LanguageKorean, nil
	case "es":
		return LanguageSpanish, nil
	case "fr":
		return LanguageFrench, nil
	case "de":
		return LanguageGerman, nil
	case "ru":
		return LanguageRussian, nil
	case "pt":
		return LanguagePortuguese, nil
	}
	return 0, fmt.Errorf("unsupported language %q", tag)
}

// Code is the BCP-47 tag for the language.
func (l Language) Code() string {
	if lb, ok := labelTable[l]; ok {
		return lb.code
	}
	return ""
}

// Valid reports whether l has a label table.
func (l Language) Valid() bool {
	_, ok := labelTable[l]
	return ok
}

type labels struct {
	code            string
	commitmentTitle string
	withdrawalTitle string
	sourceToken     string
	allocations     string
	deposit         string
	total           string
	owner           string
	targetToken     string
	assetID         string
	targetChain     string
	beneficiary     string
	minOutput       string
	confirmCommit   string
	confirmWithdraw string
}

var labelTable = map[Language]labels{
	LanguageEnglish: {
		code:            "en",
		commitmentTitle: "Enclave Commitment",
		withdrawalTitle: "Enclave Withdrawal",
		sourceToken:     "Source Token",
		allocations:     "Allocations",
		deposit:         "Deposit",
		total:           "Total",
		owner:           "Owner",
		targetToken:     "Target Token",
		assetID:         "Asset ID",
		targetChain:     "Target Chain",
		beneficiary:     "Beneficiary",
		minOutput:       "Minimum Output",
		confirmCommit:   "I confirm splitting this deposit into the allocations above.",
		confirmWithdraw: "I confirm withdrawing the allocations above to the beneficiary.",
	},
	LanguageChineseSimplified: {
		code:            "zh-CN",
		commitmentTitle: "Enclave 承诺",
		withdrawalTitle: "Enclave 提现",
		sourceToken:     "源代币",
		allocations:     "分配",
		deposit:         "存款",
		total:           "总计",
		owner:           "所有者",
		targetToken:     "目标代币",
		assetID:         "资产 ID",
		targetChain:     "目标链",
		beneficiary:     "受益人",
		minOutput:       "最低输出",
		confirmCommit:   "我确认将此存款拆分为以上分配。",
		confirmWithdraw: "我确认将以上分配提现给受益人。",
	},
	LanguageChineseTraditional: {
		code:            "zh-TW",
		commitmentTitle: "Enclave 承諾",
		withdrawalTitle: "Enclave 提現",
		sourceToken:     "來源代幣",
		allocations:     "分配",
		deposit:         "存款",
		total:           "總計",
		owner:           "擁有者",
		targetToken:     "目標代幣",
		assetID:         "資產 ID",
		targetChain:     "目標鏈",
		beneficiary:     "受益人",
		minOutput:       "最低輸出",
		confirmCommit:   "我確認將此存款拆分為以上分配。",
		confirmWithdraw: "我確認將以上分配提現給受益人。",
	},
	LanguageJapanese: {
		code:            "ja",
		commitmentTitle: "Enclave コミットメント",
		withdrawalTitle: "Enclave 出金",
		sourceToken:     "送金元トークン",
		allocations:     "割り当て",
		deposit:         "入金",
		total:           "合計",
		owner:           "所有者",
		targetToken:     "受取トークン",
		assetID:         "アセット ID",
		targetChain:     "受取チェーン",
		beneficiary:     "受取人",
		minOutput:       "最低受取額",
		confirmCommit:   "この入金を上記の割り当てに分割することを確認します。",
		confirmWithdraw: "上記の割り当てを受取人へ出金することを確認します。",
	},
	LanguageKorean: {
		code:            "ko",
		commitmentTitle: "Enclave 커밋먼트",
		withdrawalTitle: "Enclave 출금",
		sourceToken:     "원본 토큰",
		allocations:     "할당",
		deposit:         "입금",
		total:           "합계",
		owner:           "소유자",
		targetToken:     "대상 토큰",
		assetID:         "자산 ID",
		targetChain:     "대상 체인",
		beneficiary:     "수취인",
		minOutput:       "최소 수령액",
		confirmCommit:   "이 입금을 위 할당으로 분할하는 것을 확인합니다.",
		confirmWithdraw: "위 할당을 수취인에게 출금하는 것을 확인합니다.",
	},
	LanguageSpanish: {
		code:            "es",
		commitmentTitle: "Compromiso Enclave",
		withdrawalTitle: "Retiro Enclave",
		sourceToken:     "Token de origen",
		allocations:     "Asignaciones",
		deposit:         "Depósito",
		total:           "Total",
		owner:           "Propietario",
		targetToken:     "Token de destino",
		assetID:         "ID de activo",
		targetChain:     "Cadena de destino",
		beneficiary:     "Beneficiario",
		minOutput:       "Salida mínima",
		confirmCommit:   "Confirmo dividir este depósito en las asignaciones anteriores.",
		confirmWithdraw: "Confirmo retirar las asignaciones anteriores al beneficiario.",
	},
	LanguageFrench: {
		code:            "fr",
		commitmentTitle: "Engagement Enclave",
		withdrawalTitle: "Retrait Enclave",
		sourceToken:     "Jeton source",
		allocations:     "Allocations",
		deposit:         "Dépôt",
		total:           "Total",
		owner:           "Propriétaire",
		targetToken:     "Jeton cible",
		assetID:         "ID d'actif",
		targetChain:     "Chaîne cible",
		beneficiary:     "Bénéficiaire",
		minOutput:       "Montant minimum",
		confirmCommit:   "Je confirme la répartition de ce dépôt selon les allocations ci-dessus.",
		confirmWithdraw: "Je confirme le retrait des allocations ci-dessus vers le bénéficiaire.",
	},
	LanguageGerman: {
		code:            "de",
		commitmentTitle: "Enclave-Commitment",
		withdrawalTitle: "Enclave-Auszahlung",
		sourceToken:     "Quell-Token",
		allocations:     "Zuteilungen",
		deposit:         "Einzahlung",
		total:           "Gesamt",
		owner:           "Eigentümer",
		targetToken:     "Ziel-Token",
		assetID:         "Asset-ID",
		targetChain:     "Ziel-Chain",
		beneficiary:     "Begünstigter",
		minOutput:       "Mindestbetrag",
		confirmCommit:   "Ich bestätige die Aufteilung dieser Einzahlung in die obigen Zuteilungen.",
		confirmWithdraw: "Ich bestätige die Auszahlung der obigen Zuteilungen an den Begünstigten.",
	},
	LanguageRussian: {
		code:            "ru",
		commitmentTitle: "Обязательство Enclave",
		withdrawalTitle: "Вывод Enclave",
		sourceToken:     "Исходный токен",
		allocations:     "Распределения",
		deposit:         "Депозит",
		total:           "Итого",
		owner:           "Владелец",
		targetToken:     "Целевой токен",
		assetID:         "ID актива",
		targetChain:     "Целевая сеть",
		beneficiary:     "Получатель",
		minOutput:       "Минимальная сумма",
		confirmCommit:   "Я подтверждаю разделение этого депозита на указанные распределения.",
		confirmWithdraw: "Я подтверждаю вывод указанных распределений получателю.",
	},
	LanguagePortuguese: {
		code:            "pt",
		commitmentTitle: "Compromisso Enclave",
		withdrawalTitle: "Saque Enclave",
		sourceToken:     "Token de origem",
		allocations:     "Alocações",
		deposit:         "Depósito",
		total:           "Total",
		owner:           "Proprietário",
		targetToken:     "Token de destino",
		assetID:         "ID do ativo",
		targetChain:     "Rede de destino",
		beneficiary:     "Beneficiário",
		minOutput:       "Saída mínima",
		confirmCommit:   "Confirmo a divisão deste depósito nas alocações acima.",
		confirmWithdraw: "Confirmo o saque das alocações acima para o beneficiário.",
	},
}
