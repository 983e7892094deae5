/*Package scoper selects, from a pool of sampled RNA conformations, the ones that best
explain an experimental small-angle X-ray scattering (SAXS) profile.



	**scoper stages**


    Adds hydrogens to the input structure and prepares it for KGSrna
	(reduce and kgs_prepare, see the tools package).

    Samples conformations with KGSrna's kgs_explore.

    Scores every sample against the target profile with FoXS, and
	ranks them (lower chi is better). Candidates for which no score
	can be obtained are excluded and reported, never ranked.

    Hands the best K structures to a downstream refinement program.

    Optionally fits a weighted ensemble of structures to the profile
	with MultiFoXS.

This package holds the pieces shared by all stages: the candidate/score
types, the top-K selection, and the error values. The stages live in the
subpackages (workspace, tools, saxs, ensemble, refine, pipeline).

None of the external programs are distributed with scoper. They must be
obtained from their respective authors and installed independently.
*/
package scoper
