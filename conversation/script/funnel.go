package script

import (
	"sync"
	"time"

	"github.com/AzielCF/az-funnel/conversation/domain"
)

var (
	defaultOnce   sync.Once
	defaultScript *Script
)

// Default returns the diabetes-protocol funnel. It panics if the table is
// malformed, which only a code change can cause.
func Default() *Script {
	defaultOnce.Do(func() {
		s, err := New(
			Persona{Name: personaName, AvatarURL: personaAvatarURL},
			textBoxPlaceholder,
			funnelRows(),
		)
		if err != nil {
			panic(err)
		}
		defaultScript = s
	})
	return defaultScript
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func say(delay int, text string) domain.Instruction {
	return domain.Instruction{Sender: domain.SenderBot, Kind: domain.KindText, Content: text, Delay: ms(delay)}
}

func notice(delay int, text string) domain.Instruction {
	return domain.Instruction{Sender: domain.SenderSystem, Kind: domain.KindSystem, Content: text, Delay: ms(delay)}
}

func media(delay int, kind domain.Kind, url string) domain.Instruction {
	return domain.Instruction{Sender: domain.SenderBot, Kind: kind, MediaURL: url, Delay: ms(delay)}
}

func row(step domain.Step, exit domain.ExitRule, instructions ...domain.Instruction) domain.ScriptStep {
	return domain.ScriptStep{Step: step, Instructions: instructions, Exit: exit}
}

func funnelRows() []domain.ScriptStep {
	seqs := defaultSequences()
	seriesOne := seqs[SeriesOne]
	protocol := seqs[ProtocolSeries]
	seriesTwo := seqs[SeriesTwo]
	proposal := seqs[ProposalSeries]

	return []domain.ScriptStep{
		row(domain.StepIntro, domain.AutoAfter{Next: domain.StepAudio1},
			notice(0, "✅ Parabéns, você foi selecionado (a)"),
			notice(800, "Atenção: Não saia desta página, pois o atendimento será reiniciado e você poderá perder o progresso atual. Fique até o final para realizar a consulta que vai te curar da Diabetes"),
			say(1000, "Olá, tudo bem com você?"),
		),
		row(domain.StepAudio1, domain.AwaitMedia{Next: domain.StepIntroReport},
			media(500, domain.KindAudio, audioWelcome),
		),
		row(domain.StepIntroReport, domain.AutoAfter{Next: domain.StepWaitName},
			say(0, "Meu nome é Lair Ribeiro."),
			say(1000, "Sou médico nutrólogo, especialista em curar a Diabetes\nInclusive olha a minha reportagem que saiu mês passado 👇🏻👇🏻"),
			media(800, domain.KindImage, imageReport),
			say(1200, "Qual é o seu primeiro nome?"),
		),
		// The name question is asked at the end of INTRO_REPORT.
		row(domain.StepAskName, domain.AutoAfter{Next: domain.StepWaitName}),
		row(domain.StepWaitName, domain.AwaitUserText{Field: domain.FieldName, Next: domain.StepAskAge}),
		row(domain.StepAskAge, domain.AutoAfter{Next: domain.StepWaitAge},
			say(600, "E quantos anos você tem, {name}?"),
		),
		row(domain.StepWaitAge, domain.AwaitUserText{Field: domain.FieldAge, Next: domain.StepExplainAudio}),
		row(domain.StepExplainAudio, domain.AutoAfter{Next: domain.StepAudio2},
			say(600, "{name}, vou te enviar um áudio para te explicar como funciona..."),
		),
		row(domain.StepAudio2, domain.AwaitMedia{Next: domain.StepIndustrySecret},
			media(800, domain.KindAudio, audioHowItWorks),
		),
		row(domain.StepIndustrySecret, domain.AutoAfter{Next: domain.StepAudio3},
			say(0, "{name}, infelizmente a indústria farmacêutica tenta esconder isso de você…"),
			media(1000, domain.KindImage, imageIndustry),
		),
		row(domain.StepAudio3, domain.AwaitMedia{Next: domain.StepAskSymptoms},
			media(1000, domain.KindAudio, audioIndustry),
		),
		row(domain.StepAskSymptoms, domain.AutoAfter{Next: domain.StepWaitSymptoms},
			say(0, "Para te enviar a melhor\nreceita, me diga {name}"),
			say(800, "Você sofre com\nalgum desses sintomas?\n👉🏼 Cansaço constante\n👉🏼 Sede excessiva\n👉🏼 Visão embaçada\n👉🏼 Formigamento\n👉🏼 Dores no Corpo\n👉🏼 Formigamento\n👉🏼 Infecções recorrentes\n👉🏼 Fome extrema\n👉🏼 Mudanças de humor"),
		),
		// Symptoms are acknowledged but not stored.
		row(domain.StepWaitSymptoms, domain.AwaitUserText{Field: domain.FieldNone, Next: domain.StepExplainSymptoms}),
		row(domain.StepExplainSymptoms, domain.AutoAfter{Next: domain.StepWaitContinue},
			say(600, "Veja bem, {name}\n\nCom {age} anos, esses sintomas podem ter diversas causas...\nAs causas mais comuns são...\n🟡 Idade avançada\n🟡 Histórico familiar\n🟡 Metabolismo lento\n🟡 Alto consumo de açúcar\n🟡 Resistência à insulina\n🟡 Alimentos industrializados\n🟡 Uso de remédios\n🟡 Passar muito tempo sentada ou deitada"),
			say(2000, "{name}, eu preciso te contar algo muito importante..."),
			say(800, "Podemos continuar?"),
		),
		row(domain.StepAskContinue, domain.AutoAfter{Next: domain.StepWaitContinue}),
		row(domain.StepWaitContinue, domain.AwaitUserChoice{Choices: []domain.Choice{
			{Label: "PODEMOS CONTINUAR DOUTOR", Next: domain.StepAudiosSeries1},
		}}),
		row(domain.StepAudiosSeries1, domain.AwaitMedia{Next: domain.StepAskTreatment, Sequence: seriesOne},
			media(500, domain.KindAudio, seriesOne.First()),
		),
		row(domain.StepAskTreatment, domain.AutoAfter{Next: domain.StepWaitTreatment},
			say(0, "{name}, gostaria de tratar seus sintomas com a medicina alternativa?"),
		),
		row(domain.StepWaitTreatment, domain.AwaitUserChoice{Choices: []domain.Choice{
			{Label: "EU QUERO TRATAR MEUS SINTOMAS", Next: domain.StepCasesIntro},
		}}),
		row(domain.StepCasesIntro, domain.AutoAfter{Next: domain.StepWaitResults},
			say(0, "{name}, deixa eu te mostrar alguns casos parecidos com o seu..."),
			say(1000, "A Odete venceu a diabetes e eliminou 21KGs utilizando o protocolo de tratamento personalizado que enviei para ela"),
			media(800, domain.KindImage, imageCaseOdete),
			say(1500, "E a Maria conseguiu eliminar a diabetes tipo 2, deixando para trás as picadas no dedo e o uso de remédios...."),
			media(800, domain.KindVideo, videoCaseMaria),
			say(3000, "{name}, eu tenho certeza que você vai ter resultados incríveis como elas tiveram!"),
			say(800, "Gostaria de ter esses resultados?"),
		),
		row(domain.StepCasesMedia, domain.AutoAfter{Next: domain.StepAskResults}),
		row(domain.StepAskResults, domain.AutoAfter{Next: domain.StepWaitResults}),
		row(domain.StepWaitResults, domain.AwaitUserChoice{Choices: []domain.Choice{
			{Label: "SIM EU QUERO", Next: domain.StepExplainProtocol},
		}}),
		row(domain.StepExplainProtocol, domain.AutoAfter{Next: domain.StepProtocolAudios},
			say(0, "Sabe o que todas elas tem em comum?"),
			say(1000, "Todas elas aplicaram um Protocolo criado por mim...\nEu chamo ele de \"Protocolo Truque do Abacate\""),
		),
		row(domain.StepProtocolAudios, domain.AwaitMedia{Next: domain.StepProtocolBenefits, Sequence: protocol},
			media(500, domain.KindAudio, protocol.First()),
		),
		row(domain.StepProtocolBenefits, domain.AutoAfter{Next: domain.StepAudioBenefits},
			say(0, "Veja os principais benefícios do Protocolo Truque do Abacate…\n✅ Cura total da diabetes\n✅ Controla os níveis de açúcar no sangue\n✅ Elimina as dores e formigamentos\n✅ Aumenta a expectativa de vida\n✅ Fim dos medicamentos\n✅ Melhor qualidade de vida\n✅ Evita infecções na pele\n✅ Melhora a ansiedade\n✅ Ação anti-envelhecimento\n✅ Reduz a gordura do corpo\n✅ Elimina a gordura no fígado"),
		),
		row(domain.StepAudioBenefits, domain.AwaitMedia{Next: domain.StepAskWantBenefits},
			media(1000, domain.KindAudio, audioBenefits),
		),
		row(domain.StepAskWantBenefits, domain.AutoAfter{Next: domain.StepWaitWantBenefits},
			say(0, "{name}, você gostaria de ter todos os benefícios do Protocolo Truque do Abacate?"),
		),
		row(domain.StepWaitWantBenefits, domain.AwaitUserChoice{Choices: []domain.Choice{
			{Label: "SIM EU QUERO", Next: domain.StepCongratsDecision},
		}}),
		row(domain.StepCongratsDecision, domain.AutoAfter{Next: domain.StepAudiosSeries2},
			say(0, "{name}, parabéns pela sua decisão!"),
			say(800, "Quando a gente chega nos {age} anos é muito importante cuidar da nossa saúde!"),
		),
		row(domain.StepAudiosSeries2, domain.AwaitMedia{Next: domain.StepProposalIntro, Sequence: seriesTwo},
			media(500, domain.KindAudio, seriesTwo.First()),
		),
		row(domain.StepProposalIntro, domain.AutoAfter{Next: domain.StepProposalAudios},
			say(0, "{name}, eu confio tanto na medicina alternativa que eu tenho uma proposta para te fazer..."),
		),
		row(domain.StepProposalAudios, domain.AwaitMedia{Next: domain.StepFinalCTA, Sequence: proposal},
			media(500, domain.KindAudio, proposal.First()),
		),
		row(domain.StepFinalCTA, domain.Terminal{URL: checkoutURL, Label: checkoutLabel},
			say(0, "{name}, estou ansioso para aplicarmos o protocolo juntos e com Deus nos abençoando 🙏"),
			say(800, "Para garantir a sua vaga,\nclique no botão abaixo."),
		),
	}
}
