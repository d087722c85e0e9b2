package script

import "github.com/AzielCF/az-funnel/pkg/mediaseq"

const audioBase = "https://storage.saudebemestarmais.com/typebot/public/workspaces/cm22oix9z000116z1ylpznldm/typebots/cmcrz6bff0012t8cjq3lpep98/blocks/"

const (
	audioWelcome       = audioBase + "ptfaxgt2lebhxffsxzk1cuhl?v=1751824775721"
	audioHowItWorks    = audioBase + "aq33v3m34vzhx6sdsrcogj7r?v=1751824801497"
	audioIndustry      = audioBase + "dn7wpncg4472cr24czlx6i2y?v=1751824840976"
	audioBenefits      = audioBase + "iyi6c8tgole3v2v49bvmo1rl?v=1751825020589"
	imageReport        = "https://i.imgur.com/EBiOXN3.png"
	imageIndustry      = "https://i.imgur.com/qdobNPv.jpeg"
	imageCaseOdete     = "https://i.imgur.com/HM40CKw.png"
	videoCaseMaria     = "https://i.imgur.com/dbLffd4.mp4"
	personaAvatarURL   = "https://i.imgur.com/9Aijnph.jpeg"
	checkoutURL        = "https://pay.kiwify.com.br/5j1fD0L"
	checkoutLabel      = "QUERO COMEÇAR AGORA!"
	personaName        = "DR Lair Ribeiro"
	textBoxPlaceholder = "Digite sua resposta..."
)

// Sequence names double as the step names that own them.
const (
	SeriesOne      = "AUDIOS_SERIES_1"
	ProtocolSeries = "PROTOCOL_AUDIOS"
	SeriesTwo      = "AUDIOS_SERIES_2"
	ProposalSeries = "PROPOSAL_AUDIOS"
)

func defaultSequences() map[string]*mediaseq.Sequence {
	return map[string]*mediaseq.Sequence{
		SeriesOne: mediaseq.New(SeriesOne,
			audioBase+"pcpn92jxby5abyh1clchp9ob?v=1751824871509",
			audioBase+"t16ac9s1nrdadaglgxp7j9q5?v=1751824886097",
			audioBase+"njwd86xh2i04mgzxqt8nfbng?v=1751824901156",
			audioBase+"th4vc77atu7aaec6b8udeplz?v=1751824914445",
		),
		ProtocolSeries: mediaseq.New(ProtocolSeries,
			audioBase+"q4shxwce524it3h56imslygg?v=1751824968006",
			audioBase+"h0rk7ha6cmenycta7ic8p2hh?v=1751824991235",
		),
		SeriesTwo: mediaseq.New(SeriesTwo,
			audioBase+"mqscwshpsoudmy15bkpepvh6?v=1751825039715",
			audioBase+"gnmu92c5znba6qbsonjx9opl?v=1751944072975",
			audioBase+"qfiqlbj3vaftaguv21x0trda?v=1751825076430",
			audioBase+"x9vxagvqvkdj81zaaw0q8bzi?v=1751825089119",
			audioBase+"n15j6a03imakduv5ju6ic0lj?v=1751825106608",
			audioBase+"qo0yjvgp4iyng1ynl51inaan?v=1751825130464",
		),
		ProposalSeries: mediaseq.New(ProposalSeries,
			audioBase+"mpev0agw8oek7exxs33smex2?v=1751825172534",
			audioBase+"h95u68u04h3xg3ipltcau3nx?v=1751825181725",
			audioBase+"skw177lo72mivj1k1dsguju9?v=1751825196543",
			audioBase+"gph6yx2pllw43qa4mo4hl5yv?v=1751825207919",
		),
	}
}
