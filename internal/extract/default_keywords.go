package extract

// CategoryGroup maps a set of whole-word keywords onto a category name.
type CategoryGroup struct {
	Category string
	Keywords []string
}

// Tables holds every keyword list the extractor matches against. Keywords are
// lowercase.
type Tables struct {
	IncomeKeywords []string
	ClinicKeywords []string
	Categories     []CategoryGroup
}

// DefaultTables returns the keyword tables for Portuguese household and
// clinic bookkeeping. Category groups are checked in order and the first
// match wins.
func DefaultTables() Tables {
	return Tables{
		IncomeKeywords: []string{
			"recebi", "ganhei", "entrada", "salário", "salario", "receita",
		},
		ClinicKeywords: []string{
			"clínica", "clinica", "consultório", "consultorio",
			"paciente", "pacientes", "atendimento",
		},
		Categories: []CategoryGroup{
			{
				Category: "Alimentação",
				Keywords: []string{
					"mercado", "supermercado", "restaurante", "lanche", "comida",
					"padaria", "ifood", "almoço", "almoco", "jantar", "café", "cafe", "feira",
				},
			},
			{
				Category: "Transporte",
				Keywords: []string{
					"uber", "99", "gasolina", "combustível", "combustivel", "ônibus",
					"onibus", "metrô", "metro", "estacionamento", "táxi", "taxi", "pedágio", "pedagio",
				},
			},
			{
				Category: "Saúde",
				Keywords: []string{
					"farmácia", "farmacia", "remédio", "remedio", "médico", "medico",
					"exame", "dentista", "hospital", "plano",
				},
			},
			{
				Category: "Moradia",
				Keywords: []string{
					"aluguel", "condomínio", "condominio", "luz", "água", "agua",
					"energia", "internet", "gás", "gas", "iptu",
				},
			},
			{
				Category: "Educação",
				Keywords: []string{
					"escola", "curso", "faculdade", "livro", "livros", "mensalidade",
				},
			},
			{
				Category: "Lazer",
				Keywords: []string{
					"cinema", "show", "viagem", "bar", "netflix", "spotify", "passeio",
				},
			},
		},
	}
}
